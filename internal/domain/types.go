package domain

import "time"

// EntityType names a guild-scoped collection.
type EntityType string

const (
	EntityStaff       EntityType = "staff"
	EntityCase        EntityType = "case"
	EntityApplication EntityType = "application"
	EntityJob         EntityType = "job"
	EntityRetainer    EntityType = "retainer"
	EntityFeedback    EntityType = "feedback"
	EntityReminder    EntityType = "reminder"
)

// EntityTypes lists every collection in scan order.
var EntityTypes = []EntityType{
	EntityStaff,
	EntityCase,
	EntityApplication,
	EntityJob,
	EntityRetainer,
	EntityFeedback,
	EntityReminder,
}

// Valid reports whether t is one of the known collections.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Document is implemented by every stored record. The store indexes
// documents by guild and by the user the record belongs to.
type Document interface {
	DocID() string
	DocGuildID() string
	DocUserID() string
	DocType() EntityType
}

// StaffStatus is the employment status of a staff record.
type StaffStatus string

const (
	StaffActive     StaffStatus = "active"
	StaffInactive   StaffStatus = "inactive"
	StaffOnLeave    StaffStatus = "on_leave"
	StaffTerminated StaffStatus = "terminated"
)

// ValidStaffStatuses is the allowed employment-status enum.
var ValidStaffStatuses = map[StaffStatus]bool{
	StaffActive:     true,
	StaffInactive:   true,
	StaffOnLeave:    true,
	StaffTerminated: true,
}

type Staff struct {
	ID             string      `json:"id"`
	GuildID        string      `json:"guildId"`
	UserID         string      `json:"userId"`
	Username       string      `json:"username"`
	Role           string      `json:"role"`
	HierarchyLevel int         `json:"hierarchyLevel"`
	Status         StaffStatus `json:"status"`
	HiredAt        time.Time   `json:"hiredAt"`
	HiredBy        string      `json:"hiredBy,omitempty"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func (s Staff) DocID() string       { return s.ID }
func (s Staff) DocGuildID() string  { return s.GuildID }
func (s Staff) DocUserID() string   { return s.UserID }
func (s Staff) DocType() EntityType { return EntityStaff }

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	CaseOpen       CaseStatus = "open"
	CaseInProgress CaseStatus = "in_progress"
	CaseClosed     CaseStatus = "closed"
	CaseArchived   CaseStatus = "archived"
)

type Case struct {
	ID                string     `json:"id"`
	GuildID           string     `json:"guildId"`
	CaseNumber        string     `json:"caseNumber"`
	ClientID          string     `json:"clientId"`
	Title             string     `json:"title"`
	Status            CaseStatus `json:"status"`
	LeadAttorneyID    string     `json:"leadAttorneyId,omitempty"`
	AssignedLawyerIDs []string   `json:"assignedLawyerIds,omitempty"`
}

func (c Case) DocID() string       { return c.ID }
func (c Case) DocGuildID() string  { return c.GuildID }
func (c Case) DocUserID() string   { return c.ClientID }
func (c Case) DocType() EntityType { return EntityCase }

type Job struct {
	ID       string `json:"id"`
	GuildID  string `json:"guildId"`
	Title    string `json:"title"`
	RoleKey  string `json:"roleKey"`
	IsOpen   bool   `json:"isOpen"`
	PostedBy string `json:"postedBy,omitempty"`
}

func (j Job) DocID() string       { return j.ID }
func (j Job) DocGuildID() string  { return j.GuildID }
func (j Job) DocUserID() string   { return j.PostedBy }
func (j Job) DocType() EntityType { return EntityJob }

// ApplicationStatus is the lifecycle state of a job application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

type Application struct {
	ID          string            `json:"id"`
	GuildID     string            `json:"guildId"`
	JobID       string            `json:"jobId"`
	ApplicantID string            `json:"applicantId"`
	Status      ApplicationStatus `json:"status"`
}

func (a Application) DocID() string       { return a.ID }
func (a Application) DocGuildID() string  { return a.GuildID }
func (a Application) DocUserID() string   { return a.ApplicantID }
func (a Application) DocType() EntityType { return EntityApplication }

type Retainer struct {
	ID       string `json:"id"`
	GuildID  string `json:"guildId"`
	ClientID string `json:"clientId"`
	LawyerID string `json:"lawyerId"`
	Status   string `json:"status"`
}

func (r Retainer) DocID() string       { return r.ID }
func (r Retainer) DocGuildID() string  { return r.GuildID }
func (r Retainer) DocUserID() string   { return r.ClientID }
func (r Retainer) DocType() EntityType { return EntityRetainer }

type Feedback struct {
	ID             string `json:"id"`
	GuildID        string `json:"guildId"`
	SubmitterID    string `json:"submitterId"`
	TargetStaffID  string `json:"targetStaffId,omitempty"`
	TargetUsername string `json:"targetUsername,omitempty"`
	Rating         int    `json:"rating"`
	Comment        string `json:"comment,omitempty"`
}

func (f Feedback) DocID() string       { return f.ID }
func (f Feedback) DocGuildID() string  { return f.GuildID }
func (f Feedback) DocUserID() string   { return f.SubmitterID }
func (f Feedback) DocType() EntityType { return EntityFeedback }

type Reminder struct {
	ID           string    `json:"id"`
	GuildID      string    `json:"guildId"`
	UserID       string    `json:"userId"`
	CaseID       string    `json:"caseId,omitempty"`
	Message      string    `json:"message"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

func (r Reminder) DocID() string       { return r.ID }
func (r Reminder) DocGuildID() string  { return r.GuildID }
func (r Reminder) DocUserID() string   { return r.UserID }
func (r Reminder) DocType() EntityType { return EntityReminder }
