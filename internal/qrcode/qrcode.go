// Package qrcode renders voucher links as QR code images.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/url"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// Size is the edge length of generated images in pixels
const Size = 300

// VoucherURL is the link encoded into a voucher's QR code
func VoucherURL(appURL, code string) string {
	return strings.TrimRight(appURL, "/") + "/voucher/" + url.PathEscape(code)
}

// PNG encodes content as a QR code PNG
func PNG(content string) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	scaled, err := barcode.Scale(code, Size, Size)
	if err != nil {
		return nil, fmt.Errorf("qr scale: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL encodes content as a base64 PNG data URL for inline display
func DataURL(content string) (string, error) {
	img, err := PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}
