//go:build linux

package ring

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/horus-robotics/horus/cmn/cos"
)

// shmStorage mmaps a /dev/shm-backed file, the same layout every
// process that opens the same topic name maps into its own address
// space.
type shmStorage struct {
	f   *os.File
	buf []byte
}

func newSharedStorage(topic string, size int) (storage, error) {
	path := "/dev/shm/horus-" + cos.SanitizeTopic(topic)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, cos.WrapIO("open shm region", err)
	}
	if fi, statErr := f.Stat(); statErr == nil && fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, cos.WrapIO("truncate shm region", err)
		}
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, cos.WrapIO("mmap shm region", err)
	}
	return &shmStorage{f: f, buf: buf}, nil
}

func (s *shmStorage) Bytes() []byte { return s.buf }

func (s *shmStorage) Close() error {
	err := unix.Munmap(s.buf)
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
