// Package notify renderiza e envia os e-mails transacionais. Falhas de envio
// são registradas e nunca interrompem a operação que as disparou.
package notify

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/raywall/form-builder-service/pkg/models"
)

// Data são as variáveis disponíveis nos modelos.
type Data struct {
	AppName      string
	UserName     string
	Email        string
	Link         string
	Org          string
	Inviter      string
	InviterEmail string
	Role         string
	Permissions  []string
	Accepted     bool
}

var (
	adminPermissions = []string{
		"Can view, add and remove organization members",
		"Can view and add workspaces",
		"Can't delete workspaces without owner permissions",
		"Can view and edit billing plan",
	}
	memberPermissions = []string{
		"Can view and add workspaces",
		"Can't delete workspaces without owner permissions",
	}
)

type Notifier struct {
	catalog *Catalog
	mailer  Mailer
	appName string
	baseURL string
}

func NewNotifier(catalog *Catalog, mailer Mailer, appName, baseURL string) *Notifier {
	return &Notifier{catalog: catalog, mailer: mailer, appName: appName, baseURL: baseURL}
}

// Link monta uma URL do front-end com a query informada.
func (n *Notifier) Link(path string, query url.Values) string {
	link := n.baseURL + path
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return link
}

// Render expõe o catálogo para quem só precisa do conteúdo (mensagens
// customizadas do provedor de identidade).
func (n *Notifier) Render(name string, data Data) (Message, error) {
	data.AppName = n.appName
	return n.catalog.Render(name, data)
}

func (n *Notifier) send(ctx context.Context, name, to string, data Data) {
	logger := log.Ctx(ctx).With().Str("template", name).Logger()

	msg, err := n.Render(name, data)
	if err != nil {
		logger.Error().Err(err).Msg("falha ao renderizar e-mail")
		return
	}
	if err := n.mailer.Send(ctx, to, msg); err != nil {
		logger.Error().Err(err).Msg("falha ao enviar e-mail")
		return
	}
	logger.Debug().Msg("e-mail enviado")
}

// Invitation avisa o convidado.
func (n *Notifier) Invitation(ctx context.Context, inv models.Invitation) {
	perms := memberPermissions
	if inv.Role == models.RoleAdmin {
		perms = adminPermissions
	}
	n.send(ctx, TemplateInvitation, inv.Email, Data{
		Email:        inv.Email,
		Link:         n.Link("/login", nil),
		Org:          inv.OrgName,
		Inviter:      inv.Inviter.FirstName + " " + inv.Inviter.LastName,
		InviterEmail: inv.Inviter.Email,
		Role:         string(inv.Role),
		Permissions:  perms,
	})
}

// InvitationResponse avisa quem convidou sobre a resposta.
func (n *Notifier) InvitationResponse(ctx context.Context, inv models.Invitation, accepted bool) {
	if inv.Inviter.Email == "" {
		return
	}
	n.send(ctx, TemplateInvitationResponse, inv.Inviter.Email, Data{
		UserName: inv.Inviter.FirstName,
		Email:    inv.Email,
		Org:      inv.OrgName,
		Role:     string(inv.Role),
		Accepted: accepted,
	})
}

func (n *Notifier) AccountConfirmed(ctx context.Context, email, firstName string) {
	n.send(ctx, TemplateAccountConfirmed, email, Data{UserName: firstName, Email: email})
}

func (n *Notifier) PasswordChanged(ctx context.Context, email, firstName string) {
	n.send(ctx, TemplatePasswordChanged, email, Data{
		UserName: firstName,
		Email:    email,
		Link:     n.Link("/forgotPassword", url.Values{"email": {email}}),
	})
}
