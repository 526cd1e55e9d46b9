package personas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DispatchMode says how a persona's turns are answered.
type DispatchMode int

const (
	// KnowledgeDriven personas are answered by the avatar SDK's own
	// knowledge base; user text is forwarded verbatim via "talk".
	KnowledgeDriven DispatchMode = iota

	// APIDriven personas are answered by an external backend; the reply
	// text is vocalized verbatim via "repeat".
	APIDriven
)

func (m DispatchMode) String() string {
	switch m {
	case KnowledgeDriven:
		return "knowledge"
	case APIDriven:
		return "api"
	default:
		return "unknown"
	}
}

// Status marks the rollout stage of a persona.
type Status string

const (
	StatusReady      Status = "ready"
	StatusBeta       Status = "beta"
	StatusComingSoon Status = "coming-soon"
)

// SessionType selects the primary input modality for a persona.
type SessionType string

const (
	SessionVoice SessionType = "voice"
	SessionText  SessionType = "text"
)

// Descriptor is the immutable configuration of one selectable persona.
type Descriptor struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	Description  string      `yaml:"description"`
	RequiresForm bool        `yaml:"requires_form"`
	Icon         string      `yaml:"icon"`
	Status       Status      `yaml:"status"`
	SessionType  SessionType `yaml:"session_type"`
	AutoStartMic bool        `yaml:"auto_start_mic"`
	EnableMute   bool        `yaml:"enable_mute"`
	Greeting     string      `yaml:"greeting"`

	// AvatarID selects the rendered avatar; KnowledgeID binds the SDK's
	// knowledge base for knowledge-driven personas (empty otherwise).
	AvatarID    string `yaml:"avatar_id"`
	KnowledgeID string `yaml:"knowledge_id"`
}

// Mode derives the dispatch mode purely from the knowledge-base binding.
func (d Descriptor) Mode() DispatchMode {
	if d.KnowledgeID != "" {
		return KnowledgeDriven
	}
	return APIDriven
}

// Persona identifiers.
const (
	Volcano           = "volcano"
	GBMOnboarding     = "gbm-onboarding"
	MicrosoftServices = "microsoft-services"
	GestorCobranza    = "gestor-cobranza"
	BCGProduct        = "bcg-product"
)

// Registry resolves persona identifiers to descriptors. It is loaded once at
// startup and never mutated afterwards.
type Registry struct {
	byID  map[string]Descriptor
	order []string
}

// NewRegistry returns the registry with the built-in persona set.
func NewRegistry() *Registry {
	return newRegistry(builtins())
}

// NewRegistryFromYAML loads a registry overlay from a YAML file. Descriptors
// in the file replace built-ins with the same id; new ids are appended.
func NewRegistryFromYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona overlay: %w", err)
	}

	var overlay struct {
		Personas []Descriptor `yaml:"personas"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing persona overlay: %w", err)
	}

	r := newRegistry(builtins())
	for _, d := range overlay.Personas {
		if d.ID == "" {
			return nil, fmt.Errorf("persona overlay entry without id")
		}
		if _, ok := r.byID[d.ID]; !ok {
			r.order = append(r.order, d.ID)
		}
		r.byID[d.ID] = d
	}
	return r, nil
}

func newRegistry(list []Descriptor) *Registry {
	r := &Registry{byID: make(map[string]Descriptor, len(list))}
	for _, d := range list {
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Lookup resolves a persona id. ok is false for unknown ids; callers must
// treat that as "no persona selected", never as a fatal condition.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// RequiringForm returns the personas that need a pre-chat form.
func (r *Registry) RequiringForm() []Descriptor {
	var out []Descriptor
	for _, d := range r.All() {
		if d.RequiresForm {
			out = append(out, d)
		}
	}
	return out
}

func builtins() []Descriptor {
	return []Descriptor{
		{
			ID:           Volcano,
			Name:         "Volcano Innovation Summit",
			Description:  "Avatar con base de conocimiento integrada sobre el Volcano Innovation Summit.",
			RequiresForm: false,
			Icon:         "Flame",
			Status:       StatusReady,
			SessionType:  SessionVoice,
			AutoStartMic: true,
			EnableMute:   true,
			Greeting:     "¡Hola! Soy el asistente del Volcano Innovation Summit. ¿Quieres saber sobre agenda, speakers o startups?",
			AvatarID:     "7f53aab9ad9848248caf19ef21aa3b3e",
			KnowledgeID:  "9f09452d95724ae28de9e474d23f0825",
		},
		{
			ID:           GBMOnboarding,
			Name:         "GBM Onboarding",
			Description:  "Avatar especializado en inducción corporativa de GBM con base de conocimiento integrada",
			RequiresForm: false,
			Icon:         "GraduationCap",
			Status:       StatusReady,
			SessionType:  SessionVoice,
			AutoStartMic: true,
			EnableMute:   true,
			Greeting:     "Bienvenido a GBM. Estoy aquí para acompañarte en tu proceso de inducción corporativa. ¿Te gustaría conocer sobre nuestra historia, misión, valores o cultura organizacional?",
			AvatarID:     "ea745510dfc64dfc9afce9c443943828",
			KnowledgeID:  "c143998195c945e9b58e29fab7759d49",
		},
		{
			ID:           MicrosoftServices,
			Name:         "Microsoft Azure AI Services",
			Description:  "Avatar con base de conocimiento integrada sobre los servicios de inteligencia artificial de Azure.",
			RequiresForm: false,
			Icon:         "Cloud",
			Status:       StatusReady,
			SessionType:  SessionVoice,
			AutoStartMic: true,
			EnableMute:   true,
			Greeting:     "Hola, soy tu asistente de Microsoft Azure AI Services. Puedo contarte sobre nuestras soluciones de inteligencia artificial, ¿quieres empezar?",
			AvatarID:     "7f53aab9ad9848248caf19ef21aa3b3e",
			KnowledgeID:  "c21c8ab19b5945359f439dde3481062c",
		},
		{
			ID:           GestorCobranza,
			Name:         "Gestor de Cobranza",
			Description:  "Avatar especializado en gestión de cobranza con validación de datos del cliente",
			RequiresForm: true,
			Icon:         "CreditCard",
			Status:       StatusBeta,
			SessionType:  SessionVoice,
			AutoStartMic: true,
			EnableMute:   true,
			Greeting:     "Hola, soy tu asistente de cobranza. ¿En qué puedo ayudarte hoy?",
			AvatarID:     "ea745510dfc64dfc9afce9c443943828",
		},
		{
			ID:           BCGProduct,
			Name:         "BCG – Análisis de portafolio",
			Description:  "Avatar que realiza análisis BCG (crecimiento, participación y reporte) a partir de un producto seleccionado.",
			RequiresForm: true,
			Icon:         "TrendingUp",
			Status:       StatusBeta,
			SessionType:  SessionVoice,
			AutoStartMic: true,
			EnableMute:   true,
			Greeting:     "Selecciona un producto para iniciar. Luego pide un análisis a la vez: comparar ventas por año, ver ventas anuales del producto, calcular BCG o generar reporte.",
			AvatarID:     "7f53aab9ad9848248caf19ef21aa3b3e",
		},
	}
}
