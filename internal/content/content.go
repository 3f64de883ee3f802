package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSiteYAML []byte

// ErrInvalid is returned when site content fails validation.
var ErrInvalid = errors.New("content: invalid site content")

// Site is the complete, immutable content of the marketing site.
type Site struct {
	Brand       Brand            `yaml:"brand"`
	Home        Home             `yaml:"home"`
	Services    ServiceSection   `yaml:"services"`
	CaseStudies CaseStudySection `yaml:"case_studies"`
	Stack       StackSection     `yaml:"stack"`
	Team        TeamSection      `yaml:"team"`
	Contact     Contact          `yaml:"contact"`
	SEO         SEO              `yaml:"seo"`
}

// Brand is the header mark and call to action.
type Brand struct {
	Name    string `yaml:"name"`
	Tagline string `yaml:"tagline"`
	CTA     string `yaml:"cta"`
}

// SEO holds document-level metadata.
type SEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Locality    string `yaml:"locality"`
	Country     string `yaml:"country"`
}

// Home is the hero copy and the demo map card.
type Home struct {
	Pill      string   `yaml:"pill"`
	Headline  string   `yaml:"headline"`
	Body      string   `yaml:"body"`
	Primary   string   `yaml:"primary_cta"`
	Secondary string   `yaml:"secondary_cta"`
	Badges    []string `yaml:"badges"`
	MapCard   MapCard  `yaml:"map_card"`
}

// MapCard is the decorative map preview on the home page.
type MapCard struct {
	Title       string   `yaml:"title"`
	Projection  string   `yaml:"projection"`
	Placeholder string   `yaml:"placeholder"`
	Layers      []string `yaml:"layers"`
}

// Intro is the heading block shared by the listing pages.
type Intro struct {
	Heading string `yaml:"heading"`
	Lead    string `yaml:"lead"`
}

// Service is one offering on the services page.
type Service struct {
	Icon   string   `yaml:"icon"`
	Title  string   `yaml:"title"`
	Blurb  string   `yaml:"blurb"`
	Points []string `yaml:"points"`

	BlurbHTML template.HTML `yaml:"-"`
}

// Key returns the stable identifier of the service.
func (s Service) Key() string { return Slug(s.Title) }

// ServiceSection is the services page.
type ServiceSection struct {
	Intro `yaml:",inline"`
	Items []Service `yaml:"items"`
}

// CaseStudy is one project summary.
type CaseStudy struct {
	Tag    string `yaml:"tag"`
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
	Metric string `yaml:"metric"`

	BodyHTML template.HTML `yaml:"-"`
}

// Key returns the stable identifier of the case study.
func (c CaseStudy) Key() string { return Slug(c.Title) }

// CaseStudySection is the case studies page.
type CaseStudySection struct {
	Intro `yaml:",inline"`
	Note  string      `yaml:"note"`
	Items []CaseStudy `yaml:"items"`
}

// StackItem is one technology name.
type StackItem struct {
	Name string
}

// Key returns the stable identifier of the stack item.
func (s StackItem) Key() string { return Slug(s.Name) }

// UnmarshalYAML accepts a bare string.
func (s *StackItem) UnmarshalYAML(node *yaml.Node) error {
	return node.Decode(&s.Name)
}

// StackSection is the technology stack page.
type StackSection struct {
	Intro `yaml:",inline"`
	Items []StackItem `yaml:"items"`
}

// Member is one team member.
type Member struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Portfolio   string `yaml:"portfolio"`

	DescriptionHTML template.HTML `yaml:"-"`
}

// Key returns the stable identifier of the member.
func (m Member) Key() string { return Slug(m.Name) }

// TeamSection is the team page.
type TeamSection struct {
	Intro     `yaml:",inline"`
	LinkLabel string   `yaml:"link_label"`
	Members   []Member `yaml:"members"`
}

// Contact is the contact page copy and form labels.
type Contact struct {
	Heading         string      `yaml:"heading"`
	Lead            string      `yaml:"lead"`
	LocationHeading string      `yaml:"location_heading"`
	TouchHeading    string      `yaml:"touch_heading"`
	Email           string      `yaml:"email"`
	Phone           string      `yaml:"phone"`
	Form            ContactForm `yaml:"form"`
}

// ContactForm holds labels and placeholders of the inquiry form.
type ContactForm struct {
	NameLabel        string `yaml:"name_label"`
	NamePlaceholder  string `yaml:"name_placeholder"`
	EmailLabel       string `yaml:"email_label"`
	EmailPlaceholder string `yaml:"email_placeholder"`
	PhoneLabel       string `yaml:"phone_label"`
	PhonePlaceholder string `yaml:"phone_placeholder"`
	AOILabel         string `yaml:"aoi_label"`
	AOIPlaceholder   string `yaml:"aoi_placeholder"`
	NotesLabel       string `yaml:"notes_label"`
	NotesPlaceholder string `yaml:"notes_placeholder"`
	Submit           string `yaml:"submit"`
	ReplyNote        string `yaml:"reply_note"`
}

// Default parses the embedded site content.
func Default() (*Site, error) {
	return Parse(defaultSiteYAML)
}

// LoadFile parses site content from a YAML file on disk.
func LoadFile(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, validates and renders site content.
func Parse(data []byte) (*Site, error) {
	var site Site
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&site); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	if err := site.validate(); err != nil {
		return nil, err
	}
	if err := site.render(newMarkdown(), newPolicy()); err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Site) validate() error {
	if strings.TrimSpace(s.Brand.Name) == "" {
		return fmt.Errorf("%w: brand name is required", ErrInvalid)
	}
	if len(s.Home.MapCard.Layers) == 0 {
		return fmt.Errorf("%w: home map card needs layers", ErrInvalid)
	}

	services := make([]string, len(s.Services.Items))
	for i, it := range s.Services.Items {
		if len(it.Points) == 0 {
			return fmt.Errorf("%w: service %q has no points", ErrInvalid, it.Title)
		}
		services[i] = it.Key()
	}
	if err := uniqueKeys("service", services); err != nil {
		return err
	}

	studies := make([]string, len(s.CaseStudies.Items))
	for i, it := range s.CaseStudies.Items {
		studies[i] = it.Key()
	}
	if err := uniqueKeys("case study", studies); err != nil {
		return err
	}

	stack := make([]string, len(s.Stack.Items))
	for i, it := range s.Stack.Items {
		stack[i] = it.Key()
	}
	if err := uniqueKeys("stack item", stack); err != nil {
		return err
	}

	members := make([]string, len(s.Team.Members))
	for i, m := range s.Team.Members {
		u, err := url.Parse(m.Portfolio)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("%w: member %q portfolio must be an absolute http(s) url", ErrInvalid, m.Name)
		}
		members[i] = m.Key()
	}
	if err := uniqueKeys("member", members); err != nil {
		return err
	}

	if s.Contact.Email == "" {
		return fmt.Errorf("%w: contact email is required", ErrInvalid)
	}
	return nil
}

func uniqueKeys(kind string, keys []string) error {
	seen := make(map[string]int, len(keys))
	for i, k := range keys {
		if k == "" {
			return fmt.Errorf("%w: %s #%d has an empty key", ErrInvalid, kind, i+1)
		}
		if prev, ok := seen[k]; ok {
			return fmt.Errorf("%w: %s #%d duplicates #%d (key %q)", ErrInvalid, kind, i+1, prev+1, k)
		}
		seen[k] = i
	}
	return nil
}

func (s *Site) render(md goldmark.Markdown, policy *bluemonday.Policy) error {
	var err error
	for i := range s.Services.Items {
		it := &s.Services.Items[i]
		if it.BlurbHTML, err = renderMarkdown(md, policy, it.Blurb); err != nil {
			return fmt.Errorf("render service %q: %w", it.Title, err)
		}
	}
	for i := range s.CaseStudies.Items {
		it := &s.CaseStudies.Items[i]
		if it.BodyHTML, err = renderMarkdown(md, policy, it.Body); err != nil {
			return fmt.Errorf("render case study %q: %w", it.Title, err)
		}
	}
	for i := range s.Team.Members {
		m := &s.Team.Members[i]
		if m.DescriptionHTML, err = renderMarkdown(md, policy, m.Description); err != nil {
			return fmt.Errorf("render member %q: %w", m.Name, err)
		}
	}
	return nil
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Table))
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

func renderMarkdown(md goldmark.Markdown, policy *bluemonday.Policy, src string) (template.HTML, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(strings.TrimSpace(policy.Sanitize(buf.String()))), nil
}

// Slug folds diacritics, lowercases letters and digits and joins every other
// run of runes with a single hyphen.
func Slug(s string) string {
	if folded, _, err := transform.String(foldMarks(), s); err == nil {
		s = folded
	}
	var b strings.Builder
	pendingDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
