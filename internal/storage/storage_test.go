package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// fakeS3 keeps objects in a map and pages listings two keys at a time.
type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	if len(keys) > 2 {
		keys = keys[:2]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func newTestS3Store() (*S3Store, *fakeS3) {
	fake := &fakeS3{objects: map[string][]byte{}}
	return &S3Store{client: fake, bucket: "rentshare", baseURL: "https://cdn.rentshare.test", logger: zap.NewNop()}, fake
}

func TestS3Upload(t *testing.T) {
	s, fake := newTestS3Store()
	url, err := s.Upload(context.Background(), "items/i1/a.jpg", "image/jpeg", []byte("jpg"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.rentshare.test/items/i1/a.jpg" {
		t.Errorf("url = %q", url)
	}
	if string(fake.objects["items/i1/a.jpg"]) != "jpg" || aws.ToString(fake.puts[0].ContentType) != "image/jpeg" {
		t.Errorf("stored = %+v", fake.puts[0])
	}
}

func TestS3DeletePrefixAcrossPages(t *testing.T) {
	s, fake := newTestS3Store()
	for i := 0; i < 5; i++ {
		fake.objects[fmt.Sprintf("items/i1/%d.jpg", i)] = []byte("x")
	}
	fake.objects["items/i2/keep.jpg"] = []byte("x")

	n, err := s.DeletePrefix(context.Background(), "items/i1/")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 5 {
		t.Errorf("deleted = %d, want 5", n)
	}
	if len(fake.objects) != 1 {
		t.Errorf("remaining = %v", fake.objects)
	}
}

func TestFirebaseDownloadURL(t *testing.T) {
	got := firebaseDownloadURL("rentshare.appspot.com", "users/u1/avatar/a b.png", "tok")
	want := "https://firebasestorage.googleapis.com/v0/b/rentshare.appspot.com/o/users%2Fu1%2Favatar%2Fa%20b.png?alt=media&token=tok"
	if got != want {
		t.Errorf("url = %q\nwant %q", got, want)
	}
}
