package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// PNGBase64 renders the given QR payload text as a PNG and returns it
// base64-encoded, ready for a data URI. Used when the gateway did not
// return a rendered image alongside the QR text.
func PNGBase64(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty qr text")
	}
	png, err := qrcode.Encode(text, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
