package firmware

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	elaRecord       = ":020000040027D3"
	safeBackdoor    = ":10FFD400FFFFFFF6FFFFFFFFFFFFFFFFFFFFFFFF36"
	unsafeBackdoor  = ":10FFD400FFFFFFF7FFFFFFFFFFFFFFFFFFFFFFFF35"
	shortBackdoor   = ":04FFD400FFFFFFF735"
	unrelatedRecord = ":04001000004000208C"
	endOfFileRecord = ":00000001FF"
)

func hexImage(records ...string) []byte {
	return []byte(strings.Join(records, "\n") + "\n")
}

func TestHexImageWithEnabledBackdoorIsSafe(t *testing.T) {
	img := New("main.ihex", hexImage(elaRecord, safeBackdoor, endOfFileRecord), FormatHex)
	if err := img.Verdict(); err != nil {
		t.Fatalf("expected safe image, got %v", err)
	}
}

func TestHexImageOverwritingBackdoorIsUnsafe(t *testing.T) {
	img := New("main.ihex", hexImage(elaRecord, unsafeBackdoor, endOfFileRecord), FormatHex)
	err := img.Verdict()
	if !errors.Is(err, ErrUnsafeImage) {
		t.Fatalf("expected ErrUnsafeImage, got %v", err)
	}
}

func TestHexImageNeverTouchingBackdoorIsSafe(t *testing.T) {
	img := New("main.ihex", hexImage(elaRecord, unrelatedRecord, endOfFileRecord), FormatHex)
	if err := img.Verdict(); err != nil {
		t.Fatalf("expected safe image, got %v", err)
	}
}

func TestHexBackdoorAddressOutsideUpperPageIsIgnored(t *testing.T) {
	// The same word address in a different address page is not the CCA.
	img := New("main.ihex", hexImage(unsafeBackdoor, endOfFileRecord), FormatHex)
	if err := img.Verdict(); err != nil {
		t.Fatalf("expected safe image, got %v", err)
	}
}

func TestHexShortRecordAtBackdoorAddressIsIgnored(t *testing.T) {
	// Records of four data bytes or fewer cannot carry the full word.
	img := New("main.ihex", hexImage(elaRecord, shortBackdoor, endOfFileRecord), FormatHex)
	if err := img.Verdict(); err != nil {
		t.Fatalf("expected safe image, got %v", err)
	}
}

func TestBinaryImageSizeHeuristic(t *testing.T) {
	limit := OpenmoteBFlashSize - CC2538FlashPageSize

	small := New("fw.bin", make([]byte, limit-1), FormatBinary)
	if err := small.Verdict(); err != nil {
		t.Fatalf("image below the CCA limit must be safe, got %v", err)
	}

	big := New("fw.bin", make([]byte, limit), FormatBinary)
	if !errors.Is(big.Verdict(), ErrUnsafeImage) {
		t.Fatalf("image reaching the CCA page must be unsafe, got %v", big.Verdict())
	}
}

func TestLoadDetectsFormatFromExtension(t *testing.T) {
	dir := t.TempDir()

	binPath := filepath.Join(dir, "fw.BIN")
	if err := os.WriteFile(binPath, []byte{0x20, 0x00, 0x00, 0x40}, 0o644); err != nil {
		t.Fatal(err)
	}
	hexPath := filepath.Join(dir, "main.ihex")
	if err := os.WriteFile(hexPath, hexImage(elaRecord, safeBackdoor, endOfFileRecord), 0o644); err != nil {
		t.Fatal(err)
	}

	bin, err := Load(binPath)
	if err != nil {
		t.Fatal(err)
	}
	if bin.Format() != FormatBinary {
		t.Errorf("format = %s, want binary", bin.Format())
	}
	if bin.Name() != "fw.BIN" {
		t.Errorf("name = %q", bin.Name())
	}
	if bin.Size() != 4 {
		t.Errorf("size = %d", bin.Size())
	}
	if bin.Base64() != "IAAAQA==" {
		t.Errorf("base64 = %q", bin.Base64())
	}

	hex, err := Load(hexPath)
	if err != nil {
		t.Fatal(err)
	}
	if hex.Format() != FormatHex {
		t.Errorf("format = %s, want hex", hex.Format())
	}
	if hex.Verdict() != nil {
		t.Errorf("verdict = %v", hex.Verdict())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.ihex")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
