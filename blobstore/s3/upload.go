package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// UploadConfig configures index uploads.
type UploadConfig struct {
	// PartSize is the multipart part size. Default: 16MB.
	PartSize int64

	// Concurrency is the number of parts in flight. Default: 5.
	Concurrency int

	// EnableChecksum makes S3 validate uploads with CRC32C. Default: true.
	EnableChecksum bool

	// LeavePartsOnError keeps the parts of a failed multipart upload
	// instead of aborting it. Default: false.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings. Index files run
// to gigabytes, so parts are larger than the SDK default.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       16 << 20,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

// uploader sends index blobs, streamed through the multipart manager or in
// a single PutObject.
type uploader struct {
	client   Client
	manager  *manager.Uploader
	checksum bool
}

func newUploader(client Client, cfg UploadConfig) *uploader {
	return &uploader{
		client: client,
		manager: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = cfg.PartSize
			u.Concurrency = cfg.Concurrency
			u.LeavePartsOnError = cfg.LeavePartsOnError
		}),
		checksum: cfg.EnableChecksum,
	}
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// crc32c returns the CRC32C of data in the base64 big-endian form S3 uses.
func crc32c(data []byte) string {
	sum := binary.BigEndian.AppendUint32(nil, crc32.Checksum(data, castagnoli))
	return base64.StdEncoding.EncodeToString(sum)
}

// put uploads data with one request.
func (u *uploader) put(ctx context.Context, bucket, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if u.checksum {
		input.ChecksumCRC32C = aws.String(crc32c(data))
	}
	_, err := u.client.PutObject(ctx, input)
	return err
}

// stream starts an upload fed by the writes to the returned blob.
func (u *uploader) stream(ctx context.Context, bucket, key string) *upload {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)
	up := &upload{pw: pw, cancel: cancel, done: make(chan error, 1)}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	}
	if u.checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}
	go func() {
		_, err := u.manager.Upload(ctx, input)
		// unblocks the writer if the upload failed early
		_ = pr.CloseWithError(err)
		up.done <- err
	}()
	return up
}

// upload is a WritableBlob backed by an in-progress upload.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan error

	mu     sync.Mutex
	closed bool
	err    error
}

func (u *upload) Write(p []byte) (int, error) {
	u.mu.Lock()
	closed := u.closed
	u.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	return u.pw.Write(p)
}

// Sync is a no-op: data is committed on Close.
func (u *upload) Sync() error { return nil }

// Close completes the upload and waits for it.
func (u *upload) Close() error {
	return u.finish(false)
}

// Abort stops the upload. Unless LeavePartsOnError is set the manager
// aborts the multipart upload it started.
func (u *upload) Abort() error {
	return u.finish(true)
}

func (u *upload) finish(abort bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return u.err
	}
	u.closed = true
	defer u.cancel()

	if abort {
		u.cancel()
		_ = u.pw.CloseWithError(context.Canceled)
		<-u.done
		u.err = context.Canceled
		return nil
	}
	if err := u.pw.Close(); err != nil {
		u.err = err
		return err
	}
	u.err = <-u.done
	return u.err
}
