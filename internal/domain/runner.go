package domain

type RunnerStatus string

const (
	RunnerOnline  RunnerStatus = "online"  // Раннер на связи и готов принимать джобы
	RunnerOffline RunnerStatus = "offline" // Раннер недоступен (или hosted-раннер вне состояния Ready)
)

type RunnerType string

const (
	TypeSelfHosted   RunnerType = "self-hosted"   // Собственное железо оператора
	TypeGitHubHosted RunnerType = "github-hosted" // Эфемерные раннеры вендора
)

// Runner — каноническая модель раннера/агента после нормализации.
// Ответы трех провайдеров имеют несовместимые схемы, но дашборд
// работает только с этой структурой. Никогда не персистится:
// пересобирается на каждый опрос.
type Runner struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	Status RunnerStatus `json:"status"`
	Busy   bool         `json:"busy"` // Всегда заполнен, даже если API поле опустил
	Type   RunnerType   `json:"type"`

	// Enabled есть только у агентов enterprise-devops провайдера:
	// агент может быть на связи, но выключен оператором пула.
	Enabled *bool `json:"enabled,omitempty"`
}

// GroupKind определяет, каким эндпоинтом листинга пользоваться для группы.
// Классификация выполняется один раз при загрузке MonitoredGroup из базы,
// а не сравнением имени на каждом опросе.
type GroupKind string

const (
	KindSelfHosted  GroupKind = "self-hosted"  // runner-groups/{id}/runners
	KindGroupHosted GroupKind = "group-hosted" // runner-groups/{id}/hosted-runners
	KindOrgHosted   GroupKind = "org-hosted"   // actions/hosted-runners (синтетическая группа id=0)
)

// OrgHostedGroupID — сентинел для синтетической группы "GitHub Hosted Runners":
// раннеры вендора, не привязанные ни к одной runner group организации.
const OrgHostedGroupID int64 = 0

// OrgHostedGroupName — имя, под которым синтетическая группа показывается в выборе групп.
const OrgHostedGroupName = "GitHub Hosted Runners"

// MonitoredGroup — одна runner group GitHub-организации, выбранная для мониторинга.
type MonitoredGroup struct {
	ID     int64     `json:"id"`   // Внешний ID группы (0 = org-hosted сентинел)
	Name   string    `json:"name"` // Отображаемое имя
	Hosted bool      `json:"hosted"`
	Kind   GroupKind `json:"-"` // Вычисляется при загрузке, см. Classify
}

// Classify выставляет Kind по ID и флагу hosted. Раньше выбор эндпоинта
// опирался на литеральное имя группы ("Premium Runners") — переименование
// группы ломало поведение, поэтому признак вынесен в явный флаг.
func (g *MonitoredGroup) Classify() {
	switch {
	case g.ID == OrgHostedGroupID:
		g.Kind = KindOrgHosted
	case g.Hosted:
		g.Kind = KindGroupHosted
	default:
		g.Kind = KindSelfHosted
	}
}
