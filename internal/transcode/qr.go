package transcode

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// WriteShareQR writes a PNG QR code pointing at url.
func WriteShareQR(url, path string, size int) error {
	if size <= 0 {
		size = 256
	}
	if err := qrcode.WriteFile(url, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("не удалось создать QR-код: %w", err)
	}
	return nil
}
