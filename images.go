package metalworks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/views"
)

const (
	maxImageWidth = 1600
	thumbWidth    = 480
	thumbHeight   = 320
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
	thumbsSubdir  = "thumbs"
)

// processedImage is an upload re-encoded as JPEG, plus its thumbnail.
type processedImage struct {
	meta  content.Image
	data  []byte
	thumb []byte
}

// processImage decodes src, applies the EXIF orientation, caps the width at
// maxImageWidth and encodes the result and a cropped thumbnail as JPEG.
func processImage(src io.Reader, originalName string) (processedImage, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return processedImage{}, fmt.Errorf("read image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return processedImage{}, fmt.Errorf("decode image: %w", err)
	}
	img = applyOrientation(img, exifOrientation(bytes.NewReader(raw)))

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return processedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}
	var thumb bytes.Buffer
	if err := jpeg.Encode(&thumb, imaging.Fill(img, thumbWidth, thumbHeight, imaging.Center, imaging.Lanczos), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return processedImage{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return processedImage{
		meta: content.Image{
			Filename:     slugifyFilename(originalName) + ".jpg",
			OriginalName: originalName,
			Width:        w,
			Height:       h,
			Size:         buf.Len(),
		},
		data:  buf.Bytes(),
		thumb: thumb.Bytes(),
	}, nil
}

// exifOrientation returns the EXIF orientation tag, or 1 when there is none.
func exifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if s := content.Slugify(base); s != "" {
		return s
	}
	return "image"
}

// uniqueFilename appends a counter until name is free both on disk and in
// the image table.
func (a *App) uniqueFilename(ctx context.Context, name string) (string, error) {
	base := strings.TrimSuffix(name, ".jpg")
	candidate := name
	for counter := 2; ; counter++ {
		_, statErr := os.Stat(filepath.Join(a.Config.UploadsDir, candidate))
		exists, err := a.Store.Images.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if statErr != nil && !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

// validFilename rejects anything that could escape the uploads directory.
func validFilename(name string) bool {
	return name != "" && name == filepath.Base(name) && !strings.HasPrefix(name, ".")
}

func (a *App) renderImageList(c echo.Context, status int, errMsg string) error {
	images, err := a.Store.Images.List(c.Request().Context())
	if err != nil {
		return err
	}
	return RenderStatus(c, status, a.Views.AdminMedia(views.MediaData{
		AdminBase: a.adminBase(c, "media"),
		Images:    images,
		Error:     errMsg,
	}))
}

func (a *App) handleImageList(c echo.Context) error {
	return a.renderImageList(c, http.StatusOK, "")
}

func (a *App) handleImageUpload(c echo.Context) error {
	ctx := c.Request().Context()
	file, err := c.FormFile("image")
	if err != nil {
		return a.renderImageList(c, http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return a.renderImageList(c, http.StatusBadRequest, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := processImage(src, file.Filename)
	if err != nil {
		return a.renderImageList(c, http.StatusBadRequest, "Invalid image: "+err.Error())
	}
	if img.meta.Filename, err = a.uniqueFilename(ctx, img.meta.Filename); err != nil {
		return err
	}

	dir := a.Config.UploadsDir
	if err := os.MkdirAll(filepath.Join(dir, thumbsSubdir), 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, img.meta.Filename), img.data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, thumbsSubdir, img.meta.Filename), img.thumb, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := a.Store.Images.Save(ctx, img.meta); err != nil {
		return err
	}
	c.Logger().Infof("uploaded image %s (%dx%d)", img.meta.Filename, img.meta.Width, img.meta.Height)
	return c.Redirect(http.StatusSeeOther, "/admin/media/?msg=uploaded")
}

func (a *App) handleImageDelete(c echo.Context) error {
	filename := c.Param("filename")
	if !validFilename(filename) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}
	if err := a.Store.Images.Delete(c.Request().Context(), filename); err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	// Files may already be gone; the metadata row is what matters.
	_ = os.Remove(filepath.Join(a.Config.UploadsDir, filename))
	_ = os.Remove(filepath.Join(a.Config.UploadsDir, thumbsSubdir, filename))
	c.Logger().Infof("deleted image %s", filename)
	return c.Redirect(http.StatusSeeOther, "/admin/media/?msg=deleted")
}
