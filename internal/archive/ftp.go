package archive

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jlaffaye/ftp"

	"github.com/chunkcast/chunkcast/internal/apperrors"
)

func uploadFTP(ctx context.Context, u *url.URL, data []byte, filename string) error {
	username, password := credentials(u)
	port := portOrDefault(u, 21)
	addr := fmt.Sprintf("%s:%d", u.Hostname(), port)

	conn, err := connectFTP(ctx, addr, username, password)
	if err != nil {
		return err
	}
	defer conn.Quit()

	dir := strings.TrimRight(u.Path, "/")
	if dir != "" {
		if err := createFTPDirectory(conn, dir); err != nil {
			return err
		}
	}

	dest := remotePath(u, filename)
	if err := conn.Stor(dest, newReader(data)); err != nil {
		return apperrors.New(fmt.Errorf("archive: ftp store failed: %w", err)).
			Component("archive").
			WithCategory(apperrors.CategoryArchive).
			Build()
	}
	return nil
}

func connectFTP(ctx context.Context, addr, username, password string) (*ftp.ServerConn, error) {
	connCh := make(chan *ftp.ServerConn, 1)
	errCh := make(chan error, 1)

	go func() {
		conn, err := ftp.Dial(addr, ftp.DialWithTimeout(defaultTimeout))
		if err != nil {
			errCh <- fmt.Errorf("archive: ftp dial failed: %w", err)
			return
		}
		if username != "" {
			if err := conn.Login(username, password); err != nil {
				_ = conn.Quit()
				errCh <- fmt.Errorf("archive: ftp login failed: %w", err)
				return
			}
		}
		connCh <- conn
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, apperrors.New(err).Component("archive").WithCategory(apperrors.CategoryArchive).Build()
	case conn := <-connCh:
		return conn, nil
	}
}

func createFTPDirectory(conn *ftp.ServerConn, dir string) error {
	parts := strings.Split(dir, "/")
	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		current += "/" + part
		if err := conn.MakeDir(current); err != nil && !strings.Contains(err.Error(), "File exists") {
			return apperrors.New(fmt.Errorf("archive: ftp mkdir %s failed: %w", current, err)).
				Component("archive").
				WithCategory(apperrors.CategoryArchive).
				Build()
		}
	}
	return nil
}
