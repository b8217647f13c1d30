package llm

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
)

// AttachImage loads the source image when its OCR text is unreliable, so the
// model can read the picture itself. It returns nil for PDFs, for confident
// OCR, for files over constants.MaxVisionBytes and on read errors.
func AttachImage(path string, confidence float32) *Image {
	attach := path != "" &&
		constants.MapExtToFormat(filepath.Ext(path)) == constants.IMAGE &&
		confidence < constants.ImageConfidenceThreshold
	if !attach {
		return nil
	}

	if st, err := os.Stat(path); err != nil || st.Size() > constants.MaxVisionBytes {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return &Image{Data: b, MIMEType: imageMIME(path)}
}

func imageMIME(path string) string {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// DataURL encodes the image for providers that take inline URLs.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
