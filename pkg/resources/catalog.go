package resources

import "github.com/iota-uz/bookings-admin/pkg/querysync"

type Booking struct {
	ID         int64  `json:"id"`
	Influencer string `json:"influencer_name"`
	Company    string `json:"company_name"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
}

type Task struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	DueDate    string `json:"due_date"`
	AssignedTo string `json:"assigned_to_name"`
}

type Influencer struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	PhotoURL string `json:"photo_url"`
	Category string `json:"category_name"`
}

type Company struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact_person"`
	Email   string `json:"email"`
	LogoURL string `json:"logo_url"`
}

type Week struct {
	ID        int64  `json:"id"`
	Number    int    `json:"week_number"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Month     string `json:"month"`
}

// BookingFilters are the query parameters of the bookings index.
type BookingFilters struct {
	Search   string `form:"search"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// TaskFilters are the query parameters of the task assignment index.
type TaskFilters struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Priority string `form:"priority"`
}

type SearchFilters struct {
	Search string `form:"search"`
}

type WeekFilters struct {
	Month string `form:"month"`
}

func mustFilters(v interface{}) querysync.Filters {
	f, err := querysync.FiltersFrom(v)
	if err != nil {
		panic(err)
	}
	return f
}

var (
	Bookings = Resource[Booking]{
		Name:      "bookings",
		Path:      "/bookings",
		Component: "Bookings/Index",
		PropsKey:  "bookings",
		Defaults:  mustFilters(BookingFilters{}),
	}
	Tasks = Resource[Task]{
		Name:      "tasks",
		Path:      "/tasks",
		Component: "Tasks/Index",
		PropsKey:  "tasks",
		Defaults:  mustFilters(TaskFilters{}),
	}
	Influencers = Resource[Influencer]{
		Name:       "influencers",
		Path:       "/influencers",
		Component:  "Influencers/Index",
		PropsKey:   "influencers",
		Defaults:   mustFilters(SearchFilters{}),
		UploadPath: "/influencers/import",
	}
	Companies = Resource[Company]{
		Name:       "companies",
		Path:       "/companies",
		Component:  "Companies/Index",
		PropsKey:   "companies",
		Defaults:   mustFilters(SearchFilters{}),
		UploadPath: "/companies/logos",
	}
	Weeks = Resource[Week]{
		Name:      "weeks",
		Path:      "/weeks",
		Component: "Weeks/Index",
		PropsKey:  "weeks",
		Defaults:  mustFilters(WeekFilters{}),
	}
)
