package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakePutObject struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestUploadPNG(t *testing.T) {
	fake := &fakePutObject{}
	u := NewS3UploaderWithClient(fake, "my-bucket", "blog/")

	url, err := u.UploadPNG(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("UploadPNG() error: %v", err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("PutObject called %d times, want 1", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.Bucket != "my-bucket" {
		t.Errorf("Bucket = %q", *in.Bucket)
	}
	if !strings.HasPrefix(*in.Key, "blog/") || !strings.HasSuffix(*in.Key, ".png") {
		t.Errorf("Key = %q, want blog/<uuid>.png", *in.Key)
	}
	if *in.ContentType != "image/png" {
		t.Errorf("ContentType = %q", *in.ContentType)
	}
	if in.ACL != types.ObjectCannedACLPublicRead {
		t.Errorf("ACL = %q, want public-read", in.ACL)
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "png-bytes" {
		t.Errorf("Body = %q", body)
	}

	want := "https://my-bucket.s3.amazonaws.com/" + *in.Key
	if url != want {
		t.Errorf("URL = %q, want %q", url, want)
	}
}

func TestUploadPNGUniqueKeys(t *testing.T) {
	fake := &fakePutObject{}
	u := NewS3UploaderWithClient(fake, "my-bucket", "blog/")

	if _, err := u.UploadPNG(context.Background(), []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := u.UploadPNG(context.Background(), []byte("b")); err != nil {
		t.Fatal(err)
	}

	if *fake.inputs[0].Key == *fake.inputs[1].Key {
		t.Errorf("consecutive uploads reused key %q", *fake.inputs[0].Key)
	}
}

func TestUploadPNGError(t *testing.T) {
	fake := &fakePutObject{err: fmt.Errorf("access denied")}
	u := NewS3UploaderWithClient(fake, "my-bucket", "")

	_, err := u.UploadPNG(context.Background(), []byte("png"))
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("error = %v, want wrapped cause", err)
	}
}
