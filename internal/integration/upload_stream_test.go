package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yourname/chunk_upload/internal/config"
	"github.com/yourname/chunk_upload/pkg/uploadclient"
	"github.com/yourname/chunk_upload/pkg/uploadproto"
)

// Несколько клиентов грузят разные файлы одновременно; части не должны смешиваться.
func TestConcurrentPushes(t *testing.T) {
	ts, srv := newUploadServer(t, nil)
	cli := uploadclient.New(ts.URL, uploadclient.Config{RetryMax: 2})

	files := make(map[string][]byte)
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("file-%d.dat", i)
		files[name] = bytes.Repeat([]byte(fmt.Sprintf("%d-0123456789abcdef", i)), 700+i*113)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(files))
	for name, data := range files {
		src := writeSource(t, name, data)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cli.PushFile(context.Background(), src, uploadclient.PushOptions{ChunkSize: 1000, Concurrency: 3}); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(srv.Cfg.UploadDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s: content mismatch, got %d bytes want %d", name, len(got), len(want))
		}
	}
}

// Сервер в строгом режиме отказывает в сборке при пропущенном чанке, и загрузку можно дослать.
func TestStrictGap_ResumeAfterConflict(t *testing.T) {
	ts, srv := newUploadServer(t, nil)
	cli := uploadclient.New(ts.URL, uploadclient.Config{})
	data := strings.NewReader("aaabbbccc")

	push := func(idx int) (uploadclient.ChunkResponse, error) {
		return cli.PushChunk(context.Background(), uploadclient.ChunkRequest{
			Key: "resume.txt", Index: idx, Total: 3, FileSize: 9,
			Data: data, Offset: int64(idx) * 3, Size: 3,
		})
	}

	if _, err := push(0); err != nil {
		t.Fatal(err)
	}
	_, err := push(2)
	var se *uploadclient.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusConflict {
		t.Fatalf("want 409 for the gap, got %v", err)
	}

	if _, err := push(1); err != nil {
		t.Fatal(err)
	}
	res, err := push(2)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Finalized || res.ArtifactSize != 9 {
		t.Fatalf("unexpected response %+v", res)
	}

	got, err := os.ReadFile(filepath.Join(srv.Cfg.UploadDir, "resume.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "aaabbbccc" {
		t.Fatalf("artifact = %q", got)
	}
}

// Без строгой проверки сервер ведёт себя как исходный: собирает всё до первого пропуска.
func TestLenientGap_Truncates(t *testing.T) {
	ts, srv := newUploadServer(t, func(c *config.Config) { c.Strict = false })

	for _, idx := range []int{0, 2} {
		req, err := http.NewRequest(http.MethodPost, ts.URL+uploadproto.UploadPath, strings.NewReader(fmt.Sprintf("chunk%d", idx)))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(uploadproto.HeaderFileName, "gappy")
		req.Header.Set(uploadproto.HeaderChunkIndex, fmt.Sprint(idx))
		req.Header.Set(uploadproto.HeaderTotalChunks, "3")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("chunk %d: status %s", idx, resp.Status)
		}
	}

	got, err := os.ReadFile(filepath.Join(srv.Cfg.UploadDir, "gappy"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "chunk0" {
		t.Fatalf("artifact = %q, want %q", got, "chunk0")
	}
	if !srv.Parts.Exists("gappy", 2) {
		t.Fatalf("part after the gap must stay on disk")
	}
}
