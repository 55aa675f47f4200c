package firmware

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Flash geometry of the openmote-b (CC2538). The customer configuration area
// (CCA) sits in the last flash page and holds the bootloader backdoor
// configuration, the application entry point and the page lock bits; an image
// that overwrites it with the wrong value permanently locks out reflashing.
const (
	OpenmoteBFlashSize  = 512 * 1024
	CC2538FlashPageSize = 2048
)

// Intel HEX markers of the backdoor configuration word at 0x0027FFD4.
const (
	// upperAddressRecord selects the upper 16-bit address page 0x0027.
	upperAddressRecord = ":020000040027D3"
	// backdoorWordAddr is the lower 16-bit address of the configuration word.
	backdoorWordAddr = "FFD4"
	// backdoorEnabled is the only accepted write: backdoor and bootloader
	// enabled, active-low PA6 pin trigger. See CC2538 User's Guide 8.6.2.
	backdoorEnabled = "FFFFFFF6"
)

// ErrUnsafeImage marks an image that could brick the bootloader backdoor.
var ErrUnsafeImage = errors.New("unsafe firmware image")

// Format declares how an image's bytes are encoded.
type Format int

const (
	// FormatHex is an Intel HEX record file.
	FormatHex Format = iota
	// FormatBinary is a raw flash image.
	FormatBinary
)

// String returns a human-readable representation of the format.
func (f Format) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "hex"
}

// Image is a loaded firmware image. It is immutable; the safety verdict is
// computed once at construction and consulted before any publish happens.
type Image struct {
	name    string
	data    []byte
	format  Format
	verdict error
}

// Load reads a firmware image from disk. Files ending in .bin are treated as
// raw binaries, everything else as Intel HEX records.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	format := FormatHex
	if strings.HasSuffix(strings.ToLower(path), ".bin") {
		format = FormatBinary
	}
	return New(filepath.Base(path), data, format), nil
}

// New builds an image from in-memory bytes and computes its verdict.
func New(name string, data []byte, format Format) *Image {
	img := &Image{name: name, data: data, format: format}
	if format == FormatBinary {
		img.verdict = checkBinary(data)
	} else {
		img.verdict = checkHex(data)
	}
	return img
}

// Name returns the image file name sent in the program request.
func (i *Image) Name() string { return i.name }

// Format returns the declared image format.
func (i *Image) Format() Format { return i.format }

// Size returns the raw image size in bytes.
func (i *Image) Size() int { return len(i.data) }

// Verdict returns nil when the image is safe to flash, or an error wrapping
// ErrUnsafeImage explaining why it is not.
func (i *Image) Verdict() error { return i.verdict }

// Base64 returns the transport encoding of the raw bytes used in the program
// payload.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.data)
}

// checkBinary approves raw images purely by size: an image smaller than the
// flash minus one page structurally cannot reach the CCA. This is a
// conservative heuristic, not a byte-level check.
func checkBinary(data []byte) error {
	max := OpenmoteBFlashSize - CC2538FlashPageSize
	if len(data) >= max {
		return fmt.Errorf("%w: binary image of %d bytes reaches the CCA flash page (limit %d)",
			ErrUnsafeImage, len(data), max)
	}
	return nil
}

// checkHex scans hex records for writes to the backdoor configuration word.
// An image that never touches the word is safe; a write is only accepted
// with the exact backdoor-enabled pattern.
func checkHex(data []byte) error {
	upperPageSelected := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) >= len(upperAddressRecord) && line[:len(upperAddressRecord)] == upperAddressRecord {
			upperPageSelected = true
			continue
		}
		if !upperPageSelected || len(line) < 17 {
			continue
		}
		if line[3:7] != backdoorWordAddr || line[7:9] != "00" {
			continue
		}
		count, err := strconv.ParseUint(line[1:3], 16, 8)
		if err != nil || count <= 4 {
			continue
		}
		if line[9:17] != backdoorEnabled {
			return fmt.Errorf("%w: record writes %s at the backdoor configuration word, want %s",
				ErrUnsafeImage, line[9:17], backdoorEnabled)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan hex records: %w", err)
	}
	return nil
}
