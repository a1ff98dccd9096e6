package infra

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/config"
	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for operational alert e-mails.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configurado reports whether an SMTP host is set.
func (m *Mailer) Configurado() bool { return m != nil && m.host != "" }

// EnviarIncidente mails a failed-compensation incident to the operator.
func (m *Mailer) EnviarIncidente(to string, inc model.Incidente) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = fmt.Sprintf("[beefybeer] Conciliación manual requerida: %s", inc.Operacion)
	e.Text = []byte(cuerpoIncidente(inc))

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}

func cuerpoIncidente(inc model.Incidente) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incidente: %s\n", inc.ID)
	fmt.Fprintf(&b, "Ocurrido: %s\n", inc.OcurridoEn.Format(time.RFC3339))
	fmt.Fprintf(&b, "Operación: %s\n", inc.Operacion)
	fmt.Fprintf(&b, "Causa original: %s\n\n", inc.Causa)
	b.WriteString("Reversiones que fallaron:\n")
	for _, f := range inc.Fallos {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	b.WriteString("\nEl inventario o las ventas pueden estar inconsistentes. Revise las filas de inventario del día y la venta del pedido afectado.\n")
	return b.String()
}
