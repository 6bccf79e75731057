package domain

type Project struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	StartDate     string  `json:"start_date,omitempty" format:"date"`
	EndDate       string  `json:"end_date,omitempty" format:"date"`
	Status        string  `json:"status" enum:"pending,in_progress,review,completed"`
	RealStartDate *string `json:"real_start_date,omitempty" format:"date-time"`
	RealEndDate   *string `json:"real_end_date,omitempty" format:"date-time"`
	Archived      bool    `json:"archived"`
	ManagerUserID *int64  `json:"manager_user_id,omitempty"`
	CategoryID    *int64  `json:"category_id,omitempty"`
	AreaID        *int64  `json:"area_id,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type Stage struct {
	ID            int64      `json:"id"`
	ProjectID     int64      `json:"project_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Color         string     `json:"color,omitempty"`
	Status        string     `json:"status,omitempty"`
	OrdinalNumber int        `json:"ordinal_number"`
	CreatedAt     string     `json:"created_at" format:"date-time"`
	UpdatedAt     string     `json:"updated_at" format:"date-time"`
	Activities    []Activity `json:"activities,omitempty"`
}

type Activity struct {
	ID                int64   `json:"id"`
	StageID           int64   `json:"stage_id"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
	Status            string  `json:"status" enum:"pending,in_progress,review,completed"`
	Priority          string  `json:"priority" enum:"low,medium,high"`
	AssignedToUserID  *int64  `json:"assigned_to_user_id,omitempty"`
	StartDate         string  `json:"start_date,omitempty" format:"date"`
	EndDate           string  `json:"end_date,omitempty" format:"date"`
	ExecutedStartDate *string `json:"executed_start_date,omitempty" format:"date-time"`
	ExecutedEndDate   *string `json:"executed_end_date,omitempty" format:"date-time"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"admin,manager,member"`
	AreaID    *int64 `json:"area_id,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Area struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  *int64 `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// TimelineItem is one gantt row: an activity placed under its stage.
type TimelineItem struct {
	ActivityID        int64   `json:"activity_id"`
	Title             string  `json:"title"`
	Status            string  `json:"status"`
	StageID           int64   `json:"stage_id"`
	StageName         string  `json:"stage_name"`
	StageOrdinal      int     `json:"stage_ordinal"`
	AssignedToUserID  *int64  `json:"assigned_to_user_id,omitempty"`
	StartDate         string  `json:"start_date,omitempty"`
	EndDate           string  `json:"end_date,omitempty"`
	ExecutedStartDate *string `json:"executed_start_date,omitempty"`
	ExecutedEndDate   *string `json:"executed_end_date,omitempty"`
}
