package models

type UserRole string
type NotificationType string
type NotificationPriority string
type NotificationCategory string
type NotificationChannel string
type TicketStatus string
type TicketPriority string
type TicketCategory string
type MessageType string

const (
	UserRoleAdmin       UserRole = "admin"
	UserRoleHRManager   UserRole = "hr_manager"
	UserRoleRecruiter   UserRole = "recruiter"
	UserRoleInterviewer UserRole = "interviewer"
	UserRoleCandidate   UserRole = "candidate"
)

const (
	NotificationTypeSystem                NotificationType = "system"
	NotificationTypeCandidateRegistration NotificationType = "candidate_registration"
	NotificationTypeTestCompletion        NotificationType = "test_completion"
	NotificationTypeTestAssignment        NotificationType = "test_assignment"
	NotificationTypeTestSlot              NotificationType = "test_slot"
	NotificationTypeBoardCreation         NotificationType = "board_creation"
	NotificationTypeUserAction            NotificationType = "user_action"
	NotificationTypeReminder              NotificationType = "reminder"
	NotificationTypeAlert                 NotificationType = "alert"
	NotificationTypeInfo                  NotificationType = "info"
)

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

const (
	CategoryGeneral     NotificationCategory = "general"
	CategoryRecruitment NotificationCategory = "recruitment"
	CategoryAssessment  NotificationCategory = "assessment"
	CategoryScheduling  NotificationCategory = "scheduling"
	CategorySupport     NotificationCategory = "support"
	CategoryAccount     NotificationCategory = "account"
	CategorySecurity    NotificationCategory = "security"
)

const (
	ChannelInApp    NotificationChannel = "in_app"
	ChannelRealtime NotificationChannel = "realtime"
	ChannelEmail    NotificationChannel = "email"
)

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingResponse TicketStatus = "waiting_response"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

const (
	TicketCategoryGeneral    TicketCategory = "general"
	TicketCategoryTechnical  TicketCategory = "technical"
	TicketCategoryAccount    TicketCategory = "account"
	TicketCategoryAssessment TicketCategory = "assessment"
	TicketCategoryBilling    TicketCategory = "billing"
	TicketCategoryOther      TicketCategory = "other"
)

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

var (
	AllUserRoles = []UserRole{
		UserRoleAdmin, UserRoleHRManager, UserRoleRecruiter, UserRoleInterviewer, UserRoleCandidate,
	}
	AllNotificationTypes = []NotificationType{
		NotificationTypeSystem, NotificationTypeCandidateRegistration, NotificationTypeTestCompletion,
		NotificationTypeTestAssignment, NotificationTypeTestSlot, NotificationTypeBoardCreation,
		NotificationTypeUserAction, NotificationTypeReminder, NotificationTypeAlert, NotificationTypeInfo,
	}
	AllNotificationPriorities = []NotificationPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	AllNotificationCategories = []NotificationCategory{
		CategoryGeneral, CategoryRecruitment, CategoryAssessment, CategoryScheduling,
		CategorySupport, CategoryAccount, CategorySecurity,
	}
	AllTicketStatuses = []TicketStatus{
		TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingResponse,
		TicketStatusResolved, TicketStatusClosed,
	}
	AllTicketPriorities = []TicketPriority{
		TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent,
	}
	AllTicketCategories = []TicketCategory{
		TicketCategoryGeneral, TicketCategoryTechnical, TicketCategoryAccount,
		TicketCategoryAssessment, TicketCategoryBilling, TicketCategoryOther,
	}
)

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (r UserRole) IsValid() bool             { return contains(AllUserRoles, r) }
func (t NotificationType) IsValid() bool     { return contains(AllNotificationTypes, t) }
func (p NotificationPriority) IsValid() bool { return contains(AllNotificationPriorities, p) }
func (c NotificationCategory) IsValid() bool { return contains(AllNotificationCategories, c) }
func (s TicketStatus) IsValid() bool         { return contains(AllTicketStatuses, s) }
func (p TicketPriority) IsValid() bool       { return contains(AllTicketPriorities, p) }
func (c TicketCategory) IsValid() bool       { return contains(AllTicketCategories, c) }

// IsStaff - все роли кроме кандидата
func (r UserRole) IsStaff() bool {
	return r.IsValid() && r != UserRoleCandidate
}

// IsEscalated - high и urgent дублируются в админский канал
func (p NotificationPriority) IsEscalated() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

func (p TicketPriority) IsEscalated() bool {
	return p == TicketPriorityHigh || p == TicketPriorityUrgent
}

// IsFinal - resolved и closed
func (s TicketStatus) IsFinal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}
