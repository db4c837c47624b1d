package navigation

import (
	"github.com/iota-uz/bookings-admin/pkg/types"
)

var DashboardLink = types.NavEntry{
	Title: "NavigationLinks.Dashboard",
	Href:  "/dashboard",
	Icon:  "gauge",
}

var InfluencersLink = types.NavEntry{
	Title: "NavigationLinks.Influencers",
	Href:  "/influencers",
	Icon:  "users",
}

var RolesLink = types.NavEntry{
	Title: "NavigationLinks.Roles",
	Href:  "/roles",
	Icon:  "shield",
}

var CompaniesLink = types.NavEntry{
	Title: "NavigationLinks.Companies",
	Href:  "/companies",
	Icon:  "buildings",
}

var CategoriesLink = types.NavEntry{
	Title: "NavigationLinks.Categories",
	Href:  "/categories",
	Icon:  "tag",
}

var WeeksLink = types.NavEntry{
	Title: "NavigationLinks.Weeks",
	Href:  "/weeks",
	Icon:  "calendar-blank",
}

var CalendarsLink = types.NavEntry{
	Title: "NavigationLinks.Calendars",
	Href:  "/calendars",
	Icon:  "calendar-dots",
}

var TaskAssignmentLink = types.NavEntry{
	Title: "NavigationLinks.TaskAssignment",
	Href:  "/tasks",
	Icon:  "list-checks",
}

var ReportsLink = types.NavEntry{
	Title: "NavigationLinks.Reports",
	Href:  "/reports",
	Icon:  "chart-bar",
}

var CalendarViewLink = types.NavEntry{
	Title: "NavigationLinks.CalendarView",
	Href:  "/calendar",
	Icon:  "calendar",
}

var MyCalendarLink = types.NavEntry{
	Title: "NavigationLinks.MyCalendar",
	Href:  "/my-calendar",
	Icon:  "calendar-check",
}

// DefaultMenu is the console menu: base, admin resources, the calendar view
// shared by admins and influencers, then the influencer's own calendar.
func DefaultMenu() []Rule {
	return []Rule{
		{When: Always(), Entries: []types.NavEntry{DashboardLink}},
		{When: AnyOf(types.RoleAdmin), Entries: []types.NavEntry{
			InfluencersLink,
			RolesLink,
			CompaniesLink,
			CategoriesLink,
			WeeksLink,
			CalendarsLink,
			TaskAssignmentLink,
			ReportsLink,
		}},
		{When: AnyOf(types.RoleAdmin, types.RoleInfluencer), Entries: []types.NavEntry{CalendarViewLink}},
		{When: AnyOf(types.RoleInfluencer), Entries: []types.NavEntry{MyCalendarLink}},
	}
}
