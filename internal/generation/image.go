package generation

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/cctvmagic/videomagic-backend/pkg/enums"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

const referenceJPEGQuality = 90

// prepareReferenceImage validates and normalizes an input reference image.
// The provider requires the reference to match the requested video size
// exactly, so the image is resized to fill the target frame and center
// cropped. Output is always JPEG.
func prepareReferenceImage(data []byte, fileName string, size enums.VideoSize, maxBytes int64) ([]byte, string, error) {
	if int64(len(data)) > maxBytes {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "reference image too large").
			WithDetails(map[string]any{"max_bytes": maxBytes})
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding reference image")
	}

	resized := imaging.Fill(src, size.Width(), size.Height(), imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(referenceJPEGQuality)); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding reference image")
	}

	return buf.Bytes(), jpegFileName(fileName), nil
}

// jpegFileName rewrites the extension to match the re-encoded payload.
func jpegFileName(fileName string) string {
	if fileName == "" {
		return "reference.jpg"
	}
	if idx := strings.LastIndex(fileName, "."); idx > 0 {
		fileName = fileName[:idx]
	}
	return fmt.Sprintf("%s.jpg", fileName)
}
