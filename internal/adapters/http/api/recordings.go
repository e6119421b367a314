package api

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // frame decoders
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/okian/motionplay/internal/adapters/camera/opencv"
	"github.com/okian/motionplay/internal/domain/motion"
)

const maxUploadMemory = 32 << 20

// UploadLimits bounds what one grading upload may carry.
type UploadLimits struct {
	MaxBytes     int64 // whole request body
	MaxFrames    int   // "frame" parts
	MaxFrameSide int   // width or height of one frame, in pixels
}

// DefaultUploadLimits fit a couple of minutes of webcam frames.
func DefaultUploadLimits() UploadLimits {
	return UploadLimits{MaxBytes: 64 << 20, MaxFrames: 600, MaxFrameSide: 4096}
}

// RecordingDependencies defines the grading operation the handler needs.
type RecordingDependencies interface {
	GradeClip(ctx context.Context, clip motion.Clip, difficulty float64) (Graded, error)
}

// RecordingsHandler handles recorded-clip grading requests.
type RecordingsHandler struct {
	deps   RecordingDependencies
	limits UploadLimits
}

// NewRecordingsHandler creates a new recordings handler.
func NewRecordingsHandler(deps RecordingDependencies, limits UploadLimits) *RecordingsHandler {
	def := DefaultUploadLimits()
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = def.MaxBytes
	}
	if limits.MaxFrames <= 0 {
		limits.MaxFrames = def.MaxFrames
	}
	if limits.MaxFrameSide <= 0 {
		limits.MaxFrameSide = def.MaxFrameSide
	}
	return &RecordingsHandler{deps: deps, limits: limits}
}

// frameClip is a clip uploaded as individual images.
type frameClip []image.Image

func (c frameClip) FrameCount() int { return len(c) }

func (c frameClip) FrameAt(i int) (image.Image, error) {
	if i < 0 || i >= len(c) {
		return nil, fmt.Errorf("frame %d of %d: %w", i, len(c), ErrBadRequest)
	}
	return c[i], nil
}

// HandleGrade handles POST /recordings/grade. The multipart body carries
// either ordered "frame" image parts or one "video" part, and an optional
// "difficulty" field.
func (h *RecordingsHandler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBytes)
	if err := r.ParseMultipartForm(min(maxUploadMemory, h.limits.MaxBytes)); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Errorf("%w: body over %d bytes", ErrTooLarge, tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	difficulty := 1.0
	if raw := r.FormValue("difficulty"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid difficulty", ErrBadRequest))
			return
		}
		difficulty = d
	}

	var clip motion.Clip
	switch {
	case len(r.MultipartForm.File["video"]) > 0:
		c, cleanup, err := openVideo(r.MultipartForm.File["video"][0])
		if err != nil {
			writeError(w, http.StatusUnsupportedMediaType, "unsupported_media", err)
			return
		}
		defer cleanup()
		clip = c
	case len(r.MultipartForm.File["frame"]) > 0:
		c, err := decodeFrames(r.MultipartForm.File["frame"], h.limits)
		if errors.Is(err, ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		clip = c
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrNoFrames)
		return
	}

	g, err := h.deps.GradeClip(r.Context(), clip, difficulty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// decodeFrames checks every frame header before decoding any pixels.
func decodeFrames(files []*multipart.FileHeader, limits UploadLimits) (frameClip, error) {
	if len(files) > limits.MaxFrames {
		return nil, fmt.Errorf("%w: %d frames, at most %d", ErrTooLarge, len(files), limits.MaxFrames)
	}
	clip := make(frameClip, 0, len(files))
	for i, fh := range files {
		img, err := decodeFrame(fh, limits.MaxFrameSide)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		clip = append(clip, img)
	}
	return clip, nil
}

func decodeFrame(fh *multipart.FileHeader, maxSide int) (image.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if cfg.Width > maxSide || cfg.Height > maxSide {
		return nil, fmt.Errorf("%w: %dx%d, at most %d px a side", ErrTooLarge, cfg.Width, cfg.Height, maxSide)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return img, nil
}

// openVideo spools an uploaded video to disk for OpenCV.
func openVideo(fh *multipart.FileHeader) (*opencv.Clip, func(), error) {
	if !opencv.Available() {
		return nil, nil, opencv.ErrUnavailable
	}
	src, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "motionplay-*.video")
	if err != nil {
		return nil, nil, err
	}
	remove := func() { _ = os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		remove()
		return nil, nil, err
	}
	if err := tmp.Close(); err != nil {
		remove()
		return nil, nil, err
	}

	clip, err := opencv.OpenClip(tmp.Name())
	if err != nil {
		remove()
		return nil, nil, err
	}
	return clip, func() {
		_ = clip.Close()
		remove()
	}, nil
}
