package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/api/middleware"
	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/api/validators"
	"github.com/cctvmagic/videomagic-backend/internal/generation"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

// multipartFormOverhead leaves room for the text fields next to the image part.
const multipartFormOverhead = 1 << 20

// Generate accepts a multipart generation request. The image part is optional;
// when present it is read fully here so the service layer sees plain bytes.
func Generate(svc generation.Service, cfg config.GenerationConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		maxBytes := cfg.MaxImageBytes
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartFormOverhead)
		if err := r.ParseMultipartForm(maxBytes + multipartFormOverhead); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing multipart form"))
			return
		}

		duration := 0
		if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
			duration, err = strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "duration must be an integer"))
				return
			}
		}

		input := generation.SubmitInput{
			UserID:   userID,
			Email:    middleware.EmailFromContext(ctx),
			Prompt:   validators.SanitizeString(r.FormValue("prompt"), 0),
			Model:    strings.TrimSpace(r.FormValue("model")),
			Size:     strings.TrimSpace(r.FormValue("size")),
			Duration: duration,
		}

		if file, header, ferr := r.FormFile("image"); ferr == nil {
			defer file.Close()
			data, rerr := io.ReadAll(io.LimitReader(file, maxBytes+1))
			if rerr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, rerr, "reading image upload"))
				return
			}
			input.ImageData = data
			if header != nil {
				input.ImageFileName = header.Filename
			}
		} else if ferr != http.ErrMissingFile {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, ferr, "reading image upload"))
			return
		}

		job, err := svc.Submit(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, newVideoJobView(job))
	}
}
