// Upload sinks relay an already-exported file beyond the local filesystem.
// Only S3 and SMTP email are implemented; Drive and Dropbox sinks from the
// broader export-utilities family are out of scope for this suite.
package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3UploadSink uploads an exported file to a bucket via aws-sdk-go-v2.
type S3UploadSink struct {
	Client     *s3.Client
	Bucket     string
	ObjectName string // optional; defaults to the source file's base name
}

// Upload implements UploadSink.
func (s S3UploadSink) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s for upload: %w", path, err)
	}
	defer f.Close()

	key := s.ObjectName
	if key == "" {
		key = filepath.Base(path)
	}

	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading %s to s3://%s/%s: %w", path, s.Bucket, key, err)
	}
	return nil
}

// SMTPEmailSink emails an exported file as an attachment via the standard
// library's net/smtp.
type SMTPEmailSink struct {
	Host     string
	Port     string
	From     string
	To       string
	Subject  string
	Body     string
	Username string
	Password string
}

// Upload implements UploadSink.
func (s SMTPEmailSink) Upload(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s for email: %w", path, err)
	}

	subject := s.Subject
	if subject == "" {
		subject = "Catalog export"
	}
	body := s.Body
	if body == "" {
		body = "Attached is the exported catalog file."
	}

	msg, err := buildMIMEMessage(s.From, s.To, subject, body, filepath.Base(path), content)
	if err != nil {
		return fmt.Errorf("building email message: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	if err := smtp.SendMail(addr, auth, s.From, []string{s.To}, msg); err != nil {
		return fmt.Errorf("sending email to %s: %w", s.To, err)
	}
	return nil
}

// buildMIMEMessage assembles a minimal multipart/mixed email with one text
// part and one base64 attachment part.
func buildMIMEMessage(from, to, subject, body, filename string, attachment []byte) ([]byte, error) {
	boundary := "catalog-export-boundary"
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: %s\r\n", mime.TypeByExtension(filepath.Ext(filename)))
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", filename)
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(encodeBase64Lines(attachment))
	fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)

	return []byte(b.String()), nil
}

func encodeBase64Lines(data []byte) string {
	const lineLen = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		b.WriteString(encoded[i:end])
		b.WriteString("\r\n")
	}
	return b.String()
}
