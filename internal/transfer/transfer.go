// Package transfer copies router backup exports to the local backup
// directory over an SFTP session layered on an authenticated SSH client.
//
// Fetch reports a typed per-file outcome instead of logging directly; the
// fleet orchestrator decides how each outcome is logged, which keeps the
// never-abort-siblings guarantee visible in the types.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// DefaultFileNames is the allow-list of exports fetched from every router:
// the readable configuration script and the binary backup.
var DefaultFileNames = []string{"latest.rsc", "latest.backup"}

// Remote is the minimal file-transfer surface of a remote session. The
// production implementation wraps *sftp.Client; tests substitute a fake.
type Remote interface {
	// ReadDir lists the entries of a remote directory.
	ReadDir(path string) ([]os.FileInfo, error)
	// Open opens a remote file for reading.
	Open(path string) (io.ReadCloser, error)
	// Close releases the session.
	Close() error
}

type sftpRemote struct {
	client *sftp.Client
}

func (r *sftpRemote) ReadDir(path string) ([]os.FileInfo, error) {
	return r.client.ReadDir(path)
}

func (r *sftpRemote) Open(path string) (io.ReadCloser, error) {
	return r.client.Open(path)
}

func (r *sftpRemote) Close() error {
	return r.client.Close()
}

// NewRemote starts an SFTP subsystem on the given SSH client. Closing the
// returned Remote closes the subsystem only, not the underlying client.
func NewRemote(client *ssh.Client) (Remote, error) {
	c, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("open sftp subsystem: %w", err)
	}
	return &sftpRemote{client: c}, nil
}

// Kind classifies the outcome of one allow-listed file.
type Kind int

const (
	// KindFetched means the file was downloaded successfully.
	KindFetched Kind = iota + 1
	// KindAbsent means the file was not present in the remote listing.
	KindAbsent
	// KindNotFound means the remote reported the file missing mid-download.
	KindNotFound
	// KindPermission means the remote or local filesystem denied access.
	KindPermission
	// KindProtocol means the SFTP/SSH transport failed.
	KindProtocol
	// KindSystem means a local OS or network failure.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindFetched:
		return "fetched"
	case KindAbsent:
		return "absent"
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "permission denied"
	case KindProtocol:
		return "protocol error"
	case KindSystem:
		return "system error"
	default:
		return "unknown"
	}
}

// FileResult is the outcome for one allow-listed file name.
type FileResult struct {
	Name      string
	LocalPath string
	Size      int64
	Kind      Kind
	Err       error
}

// DateStamp formats the day-granularity stamp shared by all files of one
// fetch, e.g. 20260823.
func DateStamp(t time.Time) string {
	return t.Format("20060102")
}

// LocalName builds the local file name for a fetched export.
func LocalName(routerName, stamp, originalName string) string {
	return fmt.Sprintf("%s_%s_%s", routerName, stamp, originalName)
}

// Fetch lists the remote working directory once and downloads every name in
// names that appears in the listing, writing each to
// localDir/{routerName}_{stamp}_{name}. One file's failure never aborts its
// siblings. The returned error covers only the directory listing; per-file
// outcomes are in the results. Fetch does not close the Remote: the caller
// that opened the session releases it, exactly once, on every exit path.
func Fetch(remote Remote, routerName, localDir string, names []string, now time.Time) ([]FileResult, error) {
	stamp := DateStamp(now)

	entries, err := remote.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("list remote directory: %w", err)
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[e.Name()] = true
		}
	}

	results := make([]FileResult, 0, len(names))
	for _, name := range names {
		if !present[name] {
			results = append(results, FileResult{Name: name, Kind: KindAbsent})
			continue
		}
		results = append(results, download(remote, name, routerName, stamp, localDir))
	}
	return results, nil
}

func download(remote Remote, name, routerName, stamp, localDir string) FileResult {
	res := FileResult{Name: name}

	src, err := remote.Open("/" + name)
	if err != nil {
		res.Kind, res.Err = classify(err), fmt.Errorf("open remote %s: %w", name, err)
		return res
	}
	defer src.Close()

	dst := filepath.Join(localDir, LocalName(routerName, stamp, name))
	out, err := os.Create(dst)
	if err != nil {
		res.Kind, res.Err = classifyLocal(err), fmt.Errorf("create %s: %w", dst, err)
		return res
	}

	n, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		res.Kind, res.Err = classify(copyErr), fmt.Errorf("download %s: %w", name, copyErr)
		return res
	}

	res.Kind = KindFetched
	res.LocalPath = dst
	res.Size = n
	return res
}

// classify maps a remote-side error onto the outcome taxonomy. pkg/sftp
// status errors satisfy errors.Is against the os sentinel errors.
func classify(err error) Kind {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return KindNotFound
	case errors.Is(err, os.ErrPermission):
		return KindPermission
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindSystem
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return KindSystem
	}
	return KindProtocol
}

func classifyLocal(err error) Kind {
	if errors.Is(err, os.ErrPermission) {
		return KindPermission
	}
	return KindSystem
}
