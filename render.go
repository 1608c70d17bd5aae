package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

//go:embed templates
var templateFS embed.FS

// variantReport is the per-variant part of a report.
type variantReport struct {
	subject  string
	fromName string
	title    string
	alt      string
	asset    string
	tmpl     *template.Template
	styles   template.CSS
}

var variantReports = map[HostVariant]*variantReport{
	VariantWindows: {
		subject:  "Daily information from your Windows System",
		fromName: "Windows System",
		title:    "Windows System Information",
		alt:      "Windows Logo",
		asset:    "windows_logo.png",
	},
	VariantLinux: {
		subject:  "Daily information from your Linux System",
		fromName: "Linux System",
		title:    "Linux System Information",
		alt:      "Linux Logo",
		asset:    "linux_logo.png",
	},
	VariantRaspberryPi: {
		subject:  "Daily information from your Raspberry Pi",
		fromName: "Raspberry Pi",
		title:    "Raspberry Pi Information",
		alt:      "Raspberry Pi Logo",
		asset:    "raspberry_pi_logo.png",
	},
}

func init() {
	base := mustReadTemplate("base.css")
	for v, r := range variantReports {
		r.styles = template.CSS(base + mustReadTemplate(string(v)+".css"))
		r.tmpl = template.Must(template.ParseFS(templateFS, "templates/page.html", "templates/"+string(v)+".html"))
	}
}

func mustReadTemplate(name string) string {
	b, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// ReportDocument is a fully rendered report ready for dispatch.
type ReportDocument struct {
	Subject   string
	FromName  string
	From      string
	To        string
	HTML      string
	Image     []byte
	ImageName string
	ContentID string
}

// Message builds the multipart mail: the HTML part plus the inline logo
// referenced by its content ID.
func (d *ReportDocument) Message() (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(d.FromName, d.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(d.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(d.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, d.HTML)
	if err := m.EmbedReader(d.ImageName, bytes.NewReader(d.Image),
		mail.WithFileContentID("<"+d.ContentID+">"),
		mail.WithFileContentType(mail.ContentType("image/png")),
	); err != nil {
		return nil, fmt.Errorf("embed %s: %w", d.ImageName, err)
	}
	return m, nil
}

type driveView struct {
	Label string
	Total string
	Used  string
	Free  string
}

type reportView struct {
	Title     string
	Styles    template.CSS
	Alt       string
	ContentID string

	Hostname string
	Uptime   string

	DiskTotal string
	DiskUsed  string
	DiskFree  string
	Drives    []driveView

	RAMTotal   string
	RAMUsed    string
	RAMFree    string
	RAMPercent string

	CPUCores   int
	CPUPercent string

	LocalIP  string
	GlobalIP string
	Pi       PiConfig
}

// Renderer turns snapshots into report documents.
type Renderer struct {
	assetsDir    string
	from         string
	to           string
	newContentID func() string
}

func newRenderer(assetsDir, from, to string) *Renderer {
	return &Renderer{
		assetsDir: assetsDir,
		from:      from,
		to:        to,
		newContentID: func() string {
			return uuid.NewString() + "@infomail"
		},
	}
}

func (r *Renderer) Render(snap HostSnapshot, v HostVariant, addrs Addresses, pi PiConfig) (*ReportDocument, error) {
	vr, ok := variantReports[v]
	if !ok {
		return nil, &UnsupportedHostError{OS: string(v)}
	}

	assetPath := filepath.Join(r.assetsDir, vr.asset)
	image, err := os.ReadFile(assetPath)
	if err != nil {
		return nil, &MissingAssetError{Path: assetPath, Err: err}
	}

	cid := r.newContentID()
	view := reportView{
		Title:     vr.title,
		Styles:    vr.styles,
		Alt:       vr.alt,
		ContentID: cid,
		Hostname:  snap.Hostname,
		Uptime:    formatUptime(snap.Uptime),

		DiskTotal: formatGB(snap.DiskTotal),
		DiskUsed:  formatGB(snap.DiskUsed),
		DiskFree:  formatGB(snap.DiskFree),
		Drives:    fixedDrives(snap.Partitions),

		RAMTotal:   formatGB(snap.RAMTotal),
		RAMUsed:    formatGB(snap.RAMUsed),
		RAMFree:    formatGB(snap.RAMAvailable),
		RAMPercent: formatPercent(snap.RAMPercent),

		CPUCores:   snap.CPUCores,
		CPUPercent: formatPercent(snap.CPUPercent),

		LocalIP:  orUnavailable(addrs.Local),
		GlobalIP: orUnavailable(addrs.Global),
		Pi:       pi,
	}

	var buf bytes.Buffer
	if err := vr.tmpl.ExecuteTemplate(&buf, "page.html", view); err != nil {
		return nil, fmt.Errorf("render %s report: %w", v, err)
	}

	return &ReportDocument{
		Subject:   vr.subject,
		FromName:  vr.fromName,
		From:      r.from,
		To:        r.to,
		HTML:      buf.String(),
		Image:     image,
		ImageName: vr.asset,
		ContentID: cid,
	}, nil
}

func fixedDrives(parts []Partition) []driveView {
	var drives []driveView
	for _, p := range parts {
		if !p.Fixed {
			continue
		}
		drives = append(drives, driveView{
			Label: driveLabel(p.Device),
			Total: formatGB(p.Total),
			Used:  formatGB(p.Used),
			Free:  formatGB(p.Free),
		})
	}
	return drives
}
