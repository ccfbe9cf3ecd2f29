package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/iago/atomize-client/internal/domain"
)

// FilePart is one file in a multipart upload. Size is -1 when unknown, which
// makes the body length uncomputable.
type FilePart struct {
	FieldName string
	FileName  string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// Form is the multipart body sent to the job-creation endpoint.
type Form struct {
	Fields []domain.FormField
	Files  []FilePart
}

// NewJobForm builds the upload form for one local file plus job options.
func NewJobForm(path string, options domain.JobOptions) (Form, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Form{}, fmt.Errorf("stat upload file: %w", err)
	}
	if info.IsDir() {
		return Form{}, fmt.Errorf("upload path %s is a directory", path)
	}
	return Form{
		Fields: options.Fields(),
		Files: []FilePart{{
			FieldName: "file",
			FileName:  filepath.Base(path),
			Size:      info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		}},
	}, nil
}

// ReaderPart wraps an in-memory or streamed reader as a file part.
func ReaderPart(fieldName, fileName string, size int64, reader io.Reader) FilePart {
	return FilePart{
		FieldName: fieldName,
		FileName:  fileName,
		Size:      size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(reader), nil
		},
	}
}

// TotalFileBytes sums the declared file sizes, or -1 when any is unknown.
func (f Form) TotalFileBytes() int64 {
	var total int64
	for _, file := range f.Files {
		if file.Size < 0 {
			return -1
		}
		total += file.Size
	}
	return total
}

// contentLength renders the multipart envelope without file contents and adds
// the declared file sizes. It returns -1 when any file size is unknown.
func (f Form) contentLength(boundary string) (int64, error) {
	files := f.TotalFileBytes()
	if files < 0 {
		return -1, nil
	}

	var envelope bytes.Buffer
	writer := multipart.NewWriter(&envelope)
	if err := writer.SetBoundary(boundary); err != nil {
		return 0, fmt.Errorf("set multipart boundary: %w", err)
	}
	if err := f.writeParts(writer, false); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("close multipart envelope: %w", err)
	}
	return int64(envelope.Len()) + files, nil
}

func (f Form) writeParts(writer *multipart.Writer, withContent bool) error {
	for _, field := range f.Fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return fmt.Errorf("write field %s: %w", field.Name, err)
		}
	}
	for _, file := range f.Files {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return fmt.Errorf("create file part %s: %w", file.FileName, err)
		}
		if !withContent {
			continue
		}
		if file.Open == nil {
			return fmt.Errorf("file part %s has no content", file.FileName)
		}
		content, err := file.Open()
		if err != nil {
			return fmt.Errorf("open file part %s: %w", file.FileName, err)
		}
		_, copyErr := io.Copy(part, content)
		closeErr := content.Close()
		if copyErr != nil {
			return fmt.Errorf("copy file part %s: %w", file.FileName, copyErr)
		}
		if closeErr != nil {
			return fmt.Errorf("close file part %s: %w", file.FileName, closeErr)
		}
	}
	return nil
}

// encodedForm is a streaming multipart body.
type encodedForm struct {
	body          io.ReadCloser
	contentType   string
	contentLength int64
}

func (f Form) encode() (encodedForm, error) {
	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	length, err := f.contentLength(writer.Boundary())
	if err != nil {
		_ = pipeReader.Close()
		return encodedForm{}, err
	}

	go func() {
		err := f.writeParts(writer, true)
		if err == nil {
			err = writer.Close()
		}
		_ = pipeWriter.CloseWithError(err)
	}()

	return encodedForm{
		body:          pipeReader,
		contentType:   writer.FormDataContentType(),
		contentLength: length,
	}, nil
}

// ProgressFunc receives the bytes sent so far and the total body length, which
// is -1 when unknown.
type ProgressFunc func(loaded, total int64)

type progressReader struct {
	reader     io.ReadCloser
	total      int64
	loaded     int64
	onProgress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.loaded += int64(n)
		if r.onProgress != nil {
			r.onProgress(r.loaded, r.total)
		}
	}
	return n, err
}

func (r *progressReader) Close() error {
	return r.reader.Close()
}
