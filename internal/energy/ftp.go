package energy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
)

const defaultFTPPort = "21"

// FTPSource reads the CSV from a building-management FTP export. Every call
// opens its own control connection; the exports are small and polled rarely.
type FTPSource struct {
	addr     string
	user     string
	password string
	path     string
	timeout  time.Duration
}

func newFTPSource(u *url.URL) *FTPSource {
	host := u.Host
	if u.Port() == "" {
		host = u.Hostname() + ":" + defaultFTPPort
	}
	user, password := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			password = p
		}
	}
	return &FTPSource{
		addr:     host,
		user:     user,
		password: password,
		path:     u.Path,
		timeout:  30 * time.Second,
	}
}

func (s *FTPSource) dial(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(s.addr, ftp.DialWithTimeout(s.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return conn, nil
}

func (s *FTPSource) ModTime(ctx context.Context) (time.Time, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Quit()

	t, err := conn.GetTime(s.path)
	if err != nil {
		return time.Time{}, fmt.Errorf("ftp mdtm %s: %w", s.path, notExist(err))
	}
	return t, nil
}

func (s *FTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(s.path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", s.path, notExist(err))
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (s *FTPSource) String() string {
	return "ftp://" + s.addr + s.path
}

// notExist maps the server's 550 reply onto fs.ErrNotExist.
func notExist(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
		return fmt.Errorf("%w: %s", fs.ErrNotExist, tpErr.Msg)
	}
	return err
}
