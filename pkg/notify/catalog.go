package notify

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"
)

// Nomes dos modelos do catálogo.
const (
	TemplateInvitation         = "invitation"
	TemplateInvitationResponse = "invitation_response"
	TemplateAccountConfirmed   = "account_confirmed"
	TemplatePasswordChanged    = "password_changed"
	TemplateSignupCode         = "signup_code"
	TemplateResendCode         = "resend_code"
	TemplateForgotPassword     = "forgot_password"
	TemplateUpdateAttribute    = "update_attribute"
)

//go:embed templates.yaml
var defaultTemplates []byte

// S3Client interface para Mock
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type rawTemplate struct {
	Subject string `yaml:"subject"`
	HTML    string `yaml:"html"`
	SMS     string `yaml:"sms"`
}

type compiled struct {
	subject *template.Template
	html    *htmltemplate.Template
	sms     *template.Template
}

// Message é um e-mail renderizado.
type Message struct {
	Subject string
	HTML    string
	SMS     string
}

// Catalog guarda os modelos compilados.
type Catalog struct {
	templates map[string]compiled
}

// NewCatalog compila o catálogo embutido e aplica as sobrescritas, que têm
// o mesmo formato YAML. Entradas ausentes na sobrescrita mantêm o padrão.
func NewCatalog(overrides ...[]byte) (*Catalog, error) {
	raw := make(map[string]rawTemplate)
	if err := yaml.Unmarshal(defaultTemplates, &raw); err != nil {
		return nil, fmt.Errorf("catálogo embutido inválido: %w", err)
	}
	for _, doc := range overrides {
		extra := make(map[string]rawTemplate)
		if err := yaml.Unmarshal(doc, &extra); err != nil {
			return nil, fmt.Errorf("erro parse YAML de templates: %w", err)
		}
		for name, t := range extra {
			raw[name] = t
		}
	}

	c := &Catalog{templates: make(map[string]compiled, len(raw))}
	for name, t := range raw {
		var (
			ct  compiled
			err error
		)
		if ct.subject, err = template.New(name + ".subject").Parse(t.Subject); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		if ct.html, err = htmltemplate.New(name + ".html").Parse(t.HTML); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		if t.SMS != "" {
			if ct.sms, err = template.New(name + ".sms").Parse(t.SMS); err != nil {
				return nil, fmt.Errorf("template %s: %w", name, err)
			}
		}
		c.templates[name] = ct
	}
	return c, nil
}

// LoadCatalogFromS3 baixa o YAML de sobrescrita e monta o catálogo.
func LoadCatalogFromS3(ctx context.Context, client S3Client, bucket, key string) (*Catalog, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao baixar do S3: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return NewCatalog(body)
}

// Render aplica os dados ao modelo.
func (c *Catalog) Render(name string, data any) (Message, error) {
	t, ok := c.templates[name]
	if !ok {
		return Message{}, fmt.Errorf("template desconhecido: %s", name)
	}

	var msg Message
	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("template %s: %w", name, err)
	}
	msg.Subject = buf.String()

	buf.Reset()
	if err := t.html.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("template %s: %w", name, err)
	}
	msg.HTML = buf.String()

	if t.sms != nil {
		buf.Reset()
		if err := t.sms.Execute(&buf, data); err != nil {
			return Message{}, fmt.Errorf("template %s: %w", name, err)
		}
		msg.SMS = buf.String()
	}
	return msg, nil
}
