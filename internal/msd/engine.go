package msd

import (
	"errors"
	"io"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/primitives"
)

// Engine owns the storage root, the virtual drive and the exclusive
// region serializing set_connected(true) against concurrent
// write_image/read_image.
type Engine struct {
	Storage *Storage
	Drive   *Drive
	LUN     LUNPaths

	SyncChunkSize    int64
	ReadChunkSize    int
	RemoveIncomplete bool

	region primitives.Resource
}

// NewEngine wires a Storage root and LUN paths into a fresh Drive.
func NewEngine(storage *Storage, lun LUNPaths) *Engine {
	return &Engine{
		Storage: storage,
		Drive:   &Drive{},
		LUN:     lun,
	}
}

// SetParams updates the drive's selected image/cdrom flag (refused
// while connected, per Drive.SetParams).
func (e *Engine) SetParams(name string, cdrom bool) error {
	img, err := e.resolveImage(name)
	if err != nil {
		return err
	}
	return e.Drive.SetParams(img, cdrom)
}

func (e *Engine) resolveImage(name string) (*Image, error) {
	path, err := ImagePath(e.Storage.Root, name)
	if err != nil {
		return nil, err
	}
	images, err := ListImages(e.Storage.Root)
	if err != nil {
		return nil, kvmerr.Internal(err)
	}
	for _, img := range images {
		if img.Path == path {
			i := img
			return &i, nil
		}
	}
	return nil, kvmerr.Operation("msd: no such image: %s", name)
}

// SetConnected attaches or detaches the selected image, acquiring the
// exclusive region for the duration of a connect so no concurrent
// write_image/read_image can proceed against the same backing file.
func (e *Engine) SetConnected(connected bool) error {
	release, err := e.region.Acquire("set_connected")
	if err != nil {
		return kvmerr.Busy("msd: %v", err)
	}
	defer release()

	return e.Drive.SetConnected(connected, e.LUN, e.Storage.Remount)
}

// WriteImage acquires the exclusive region and streams data from src
// into a new image under the storage root, using the sidecar marker
// and fsync-paced Writer. Refused while the drive is
// connected, since the image may be the one currently exported.
func (e *Engine) WriteImage(name string, src io.Reader) (int64, error) {
	if e.Drive.Connected {
		return 0, kvmerr.Busy("msd: cannot write while drive is connected")
	}

	release, err := e.region.Acquire("write_image")
	if err != nil {
		return 0, kvmerr.Busy("msd: %v", err)
	}
	defer release()

	path, err := ImagePath(e.Storage.Root, name)
	if err != nil {
		return 0, err
	}

	w, err := CreateWriter(path, e.SyncChunkSize, e.RemoveIncomplete)
	if err != nil {
		return 0, kvmerr.Internal(err)
	}

	buf := make([]byte, 256*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				w.Abort()
				return w.Written(), kvmerr.Internal(werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			w.Abort()
			return w.Written(), kvmerr.Internal(rerr)
		}
	}

	if err := w.Close(); err != nil {
		return w.Written(), kvmerr.Internal(err)
	}
	return w.Written(), nil
}

// ReadImage acquires the exclusive region and streams name to dst in
// ReadChunkSize pieces.
func (e *Engine) ReadImage(name string, dst io.Writer) (int64, error) {
	release, err := e.region.Acquire("read_image")
	if err != nil {
		return 0, kvmerr.Busy("msd: %v", err)
	}
	defer release()

	path, err := ImagePath(e.Storage.Root, name)
	if err != nil {
		return 0, err
	}

	r, err := OpenReader(path, e.ReadChunkSize)
	if err != nil {
		return 0, kvmerr.Internal(err)
	}
	defer r.Close()

	var total int64
	for {
		chunk, rerr := r.Next()
		if len(chunk) > 0 {
			if _, werr := dst.Write(chunk); werr != nil {
				return total, kvmerr.Internal(werr)
			}
			total += int64(len(chunk))
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return total, kvmerr.Internal(rerr)
		}
	}
	return total, nil
}

// RemoveImage deletes name from storage, refusing while it backs a
// connected drive.
func (e *Engine) RemoveImage(name string) error {
	path, err := ImagePath(e.Storage.Root, name)
	if err != nil {
		return err
	}
	if e.Drive.Connected && e.Drive.Image != nil && e.Drive.Image.Path == path {
		return kvmerr.Busy("msd: cannot remove image backing the connected drive")
	}
	if err := RemoveImage(path); err != nil {
		return kvmerr.Internal(err)
	}
	return nil
}

// ListImages returns every image currently on the storage root.
func (e *Engine) ListImages() ([]Image, error) {
	return ListImages(e.Storage.Root)
}
