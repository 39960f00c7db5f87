// Package catalog holds the static app catalog served by the marketing site.
package catalog

// Pricing and availability values used by the catalog.
const (
	PricingFree         = "free"
	PricingOneTime      = "one-time"
	PricingSubscription = "subscription"

	AvailabilityAvailable  = "available"
	AvailabilityComingSoon = "coming-soon"
	AvailabilityPreBeta    = "pre-beta"
)

// App is one catalog entry.
type App struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Hook         string   `json:"hook"`
	Model        string   `json:"model"`
	Category     string   `json:"category"`
	PricingType  string   `json:"pricingType"`
	Availability string   `json:"availability"`
	AppStoreURL  string   `json:"appStoreUrl,omitempty"`
	Features     []string `json:"features"`
}

var apps = []App{
	{
		Slug:         "taskume",
		Name:         "Taskume",
		Hook:         "Tasks, not systems. Clarity, not clutter.",
		Model:        "Free",
		Category:     "Organization",
		PricingType:  PricingFree,
		Availability: AvailabilityPreBeta,
		Features: []string{
			"One-tap task capture",
			"Visual priority cues",
			"Accessibility-first interface",
			"Agent-powered reminders and nudges",
			"Distraction-free workflows",
			"Cognitive companion design",
		},
	},
	{
		Slug:         "cosmic-breathe",
		Name:         "Cosmic Breathe",
		Hook:         "Breathe in, glow out. 30 seconds to reset.",
		Model:        "Free + $1.99 one-time unlock",
		Category:     "Focus & Calm",
		PricingType:  PricingOneTime,
		Availability: AvailabilityComingSoon,
		AppStoreURL:  "https://apps.apple.com/app/cosmic-breathe/id123456789",
		Features: []string{
			"30-second guided breathing sessions",
			"Anxiety and stress management",
			"Calming visual themes",
			"Haptic feedback for grounding",
			"Offline mode",
			"Apple Health integration",
		},
	},
	{
		Slug:         "focus-orbit",
		Name:         "Focus Orbit",
		Hook:         "Stay in flow with 25-minute focus sprints.",
		Model:        "Free + Pro subscription",
		Category:     "Focus & Calm",
		PricingType:  PricingSubscription,
		Availability: AvailabilityComingSoon,
		Features: []string{
			"25-minute Pomodoro sprints",
			"Distraction management tools",
			"Progress visualization",
			"Focus statistics and insights",
			"Custom break intervals",
			"Calming background sounds",
		},
	},
	{
		Slug:         "lunar-lists",
		Name:         "Lunar Lists",
		Hook:         "Tasks that feel light-years simpler.",
		Model:        "Free",
		Category:     "Organization",
		PricingType:  PricingFree,
		Availability: AvailabilityComingSoon,
		AppStoreURL:  "https://apps.apple.com/app/lunar-lists/id123456791",
		Features: []string{
			"Minimalist task management",
			"Executive function support",
			"Calming, distraction-free interface",
			"Smart task suggestions",
			"Voice input for accessibility",
			"Widget support",
		},
	},
}

// Apps returns the full catalog in display order.
func Apps() []App {
	out := make([]App, len(apps))
	copy(out, apps)
	return out
}

// Find returns the app with the given slug.
func Find(slug string) (App, bool) {
	for _, a := range apps {
		if a.Slug == slug {
			return a, true
		}
	}
	return App{}, false
}

// Categories returns "All" plus the distinct categories in catalog order.
func Categories() []string {
	out := []string{"All"}
	seen := make(map[string]bool)
	for _, a := range apps {
		if !seen[a.Category] {
			seen[a.Category] = true
			out = append(out, a.Category)
		}
	}
	return out
}

// ByCategory filters the catalog; "All" returns everything.
func ByCategory(category string) []App {
	if category == "All" {
		return Apps()
	}
	var out []App
	for _, a := range apps {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}
