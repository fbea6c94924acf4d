package msd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// Storage is rooted at a mount point and recursively enumerates
// regular files.
type Storage struct {
	Root          string
	RemountCmd    string // e.g. "/usr/bin/kvmd-otgmsd-remount"
}

// Partition describes one mount crossed while walking Root.
type Partition struct {
	Path      string
	Size      uint64
	Free      uint64
	Writable  bool
}

func (s *Storage) Remount(rw bool) error {
	if s.RemountCmd == "" {
		return nil
	}
	mode := "ro"
	if rw {
		mode = "rw"
	}
	cmd := exec.Command(s.RemountCmd, s.Root, mode)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("remount %s %s: %w: %s", s.Root, mode, err, out)
	}
	return nil
}

// Partitions walks Root and returns one Partition per distinct
// filesystem (device id) crossed.
func (s *Storage) Partitions() ([]Partition, error) {
	seen := map[uint64]bool{}
	var out []Partition

	err := filepath.WalkDir(s.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && (d.Name() == "lost+found") {
			return filepath.SkipDir
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			return nil
		}
		if seen[stat.Dev] {
			return nil
		}
		seen[stat.Dev] = true

		var statfs syscall.Statfs_t
		if err := syscall.Statfs(path, &statfs); err != nil {
			return nil
		}

		out = append(out, Partition{
			Path:     filepath.Dir(path),
			Size:     statfs.Blocks * uint64(statfs.Bsize),
			Free:     statfs.Bavail * uint64(statfs.Bsize),
			Writable: statfs.Flags&syscallMsRdonly == 0,
		})
		return nil
	})
	return out, err
}

// syscallMsRdonly mirrors ST_RDONLY from statvfs(2); Go's
// syscall.Statfs_t.Flags does not receive a named constant for it on
// every platform, so it is spelled out here.
const syscallMsRdonly = 0x1

// IsHidden reports whether name should be excluded from enumeration.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || name == "lost+found"
}
