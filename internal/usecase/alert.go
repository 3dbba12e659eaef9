package usecase

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// alertTimeLayout matches the es-ES locale: day/month/year, 24h clock.
const alertTimeLayout = "02/01/2006, 15:04:05"

const alertSubjectPrefix = "🚨 Alerta de Ángel Guardián - "

const alertBodyTemplate = `🚨 ALERTA DE ÁNGEL GUARDIÁN

Se ha detectado contenido inapropiado en el dispositivo protegido.

📊 DETALLES DE LA DETECCIÓN:
• Tipo: {{.Kind}}
• Fecha y Hora: {{.Timestamp}}
• Nivel de Confianza: {{.ConfidencePercent}}%
• Razón: {{.Reason}}
{{- if .Content}}
• Contenido: {{.Content}}
{{- end}}

💻 INFORMACIÓN DEL DISPOSITIVO:
• Sistema: {{.Device}}

🔧 ACCIONES TOMADAS:
• Contenido bloqueado
• Incidente registrado
{{- if .StrictMode}}
• Dispositivo apagado automáticamente
{{- end}}

Este es un mensaje automático del sistema Ángel Guardián.
No responder a este correo.
`

var alertTemplate = template.Must(template.New("alert").Parse(alertBodyTemplate))

// AlertMessage is a rendered guardian alert.
type AlertMessage struct {
	Subject string
	Body    string
}

type alertData struct {
	Kind              string
	Timestamp         string
	ConfidencePercent int
	Reason            string
	Content           string
	Device            string
	StrictMode        bool
}

// AlertRenderer formats detections into guardian alerts.
type AlertRenderer struct {
	location *time.Location
	device   domain.DeviceInfoProvider
}

// NewAlertRenderer creates a renderer that prints timestamps in loc.
// A nil loc uses the local time zone; a nil device prints an unknown system.
func NewAlertRenderer(loc *time.Location, device domain.DeviceInfoProvider) *AlertRenderer {
	if loc == nil {
		loc = time.Local
	}
	return &AlertRenderer{location: loc, device: device}
}

// Render builds the subject and body. The strict-mode line only appears when strict is true.
func (r *AlertRenderer) Render(d domain.Detection, strict bool) (AlertMessage, error) {
	data := alertData{
		Kind:              strings.ToUpper(string(d.Kind)),
		Timestamp:         d.Timestamp.In(r.location).Format(alertTimeLayout),
		ConfidencePercent: int(math.Round(d.Confidence * 100)),
		Reason:            d.Reason,
		Content:           d.Content,
		Device:            r.describeDevice(),
		StrictMode:        strict,
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return AlertMessage{}, fmt.Errorf("render alert: %w", err)
	}

	return AlertMessage{
		Subject: alertSubjectPrefix + string(d.Kind),
		Body:    buf.String(),
	}, nil
}

func (r *AlertRenderer) describeDevice() string {
	if r.device == nil {
		return "desconocido"
	}
	info := r.device.DeviceInfo()
	parts := make([]string, 0, 3)
	for _, p := range []string{info.Hostname, info.Platform + " " + info.PlatformVersion, info.KernelArch} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "desconocido"
	}
	return strings.Join(parts, " - ")
}
