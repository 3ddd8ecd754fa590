package backup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeS3 struct {
	bucket, key, body, contentType string
	err                            error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader(t *testing.T) {
	ctx := context.Background()

	Convey("Given an uploader with a prefix", t, func() {
		client := &fakeS3{}
		u := newS3Uploader(client, "shop-backups", "nightly")

		err := u.Upload(ctx, "2024/Feb15_9AM/carts.sql", strings.NewReader("-- dump"))
		So(err, ShouldBeNil)
		So(client.bucket, ShouldEqual, "shop-backups")
		So(client.key, ShouldEqual, "nightly/2024/Feb15_9AM/carts.sql")
		So(client.contentType, ShouldEqual, "application/sql")
		So(client.body, ShouldEqual, "-- dump")
	})

	Convey("Given no prefix the key is used as is", t, func() {
		u := newS3Uploader(&fakeS3{}, "b", "")
		So(u.Key("2024/Feb15_9AM/carts.sql"), ShouldEqual, "2024/Feb15_9AM/carts.sql")
	})

	Convey("Given a failing client", t, func() {
		client := &fakeS3{err: errors.New("access denied")}
		u := newS3Uploader(client, "b", "")

		err := u.Upload(ctx, "k", strings.NewReader(""))
		So(err, ShouldNotBeNil)
		So(errors.Is(err, client.err), ShouldBeTrue)
	})
}
