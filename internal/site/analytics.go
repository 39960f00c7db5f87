package site

// ConversionRates are funnel percentages derived from the raw event counts.
type ConversionRates struct {
	VisitToStart      float64 `json:"visitToStart"`
	StartToSubmit     float64 `json:"startToSubmit"`
	OverallConversion float64 `json:"overallConversion"`
}

// FieldInteractions counts events per form field.
type FieldInteractions struct {
	Name         int `json:"name"`
	Email        int `json:"email"`
	SocialMedia  int `json:"socialMedia"`
	AppSelection int `json:"appSelection"`
	Comments     int `json:"comments"`
}

// AbandonmentPoints counts sessions by the last field touched before the
// visitor left without submitting.
type AbandonmentPoints struct {
	AfterName         int `json:"afterName"`
	AfterEmail        int `json:"afterEmail"`
	AfterSocialMedia  int `json:"afterSocialMedia"`
	AfterAppSelection int `json:"afterAppSelection"`
	AfterComments     int `json:"afterComments"`
}

// Analytics is the signup-funnel summary served to the dashboard.
type Analytics struct {
	TotalPageVisits       int               `json:"totalPageVisits"`
	TotalFormStarts       int               `json:"totalFormStarts"`
	TotalFormAbandons     int               `json:"totalFormAbandons"`
	TotalFormSubmits      int               `json:"totalFormSubmits"`
	ConversionRates       ConversionRates   `json:"conversionRates"`
	FieldInteractions     FieldInteractions `json:"fieldInteractions"`
	AppSelectionAnalytics map[string]int    `json:"appSelectionAnalytics"`
	RecentInteractions    []FormInteraction `json:"recentInteractions"`
	AbandonmentPoints     AbandonmentPoints `json:"abandonmentPoints"`
}

const recentInteractionLimit = 20

// Summarize computes the funnel summary from interactions ordered newest
// first. A "form start" is the first focus on the name field.
func Summarize(interactions []FormInteraction) Analytics {
	a := Analytics{
		AppSelectionAnalytics: make(map[string]int),
		RecentInteractions:    []FormInteraction{},
	}

	for _, fi := range interactions {
		switch fi.EventType {
		case EventPageVisit:
			a.TotalPageVisits++
		case EventFormAbandon:
			a.TotalFormAbandons++
		case EventFormSubmit:
			a.TotalFormSubmits++
		case EventFieldFocus:
			if fi.FieldName == "name" {
				a.TotalFormStarts++
			}
		}

		switch fi.FieldName {
		case "name":
			a.FieldInteractions.Name++
		case "email":
			a.FieldInteractions.Email++
		case "socialMedia":
			a.FieldInteractions.SocialMedia++
		case "appSelection":
			a.FieldInteractions.AppSelection++
		case "comments":
			a.FieldInteractions.Comments++
		}

		if fi.AppSelection != "" {
			a.AppSelectionAnalytics[fi.AppSelection]++
		}
	}

	if a.TotalPageVisits > 0 {
		a.ConversionRates.VisitToStart = float64(a.TotalFormStarts) / float64(a.TotalPageVisits) * 100
		a.ConversionRates.OverallConversion = float64(a.TotalFormSubmits) / float64(a.TotalPageVisits) * 100
	}
	if a.TotalFormStarts > 0 {
		a.ConversionRates.StartToSubmit = float64(a.TotalFormSubmits) / float64(a.TotalFormStarts) * 100
	}

	if len(interactions) > recentInteractionLimit {
		a.RecentInteractions = append(a.RecentInteractions, interactions[:recentInteractionLimit]...)
	} else {
		a.RecentInteractions = append(a.RecentInteractions, interactions...)
	}

	a.AbandonmentPoints = abandonmentPoints(interactions)
	return a
}

// abandonmentPoints finds, for every session that never submitted, the most
// recent field it touched. Input is ordered newest first, so the first field
// event seen per session is its last touch.
func abandonmentPoints(interactions []FormInteraction) AbandonmentPoints {
	var points AbandonmentPoints

	counts := make(map[string]int)
	submitted := make(map[string]bool)
	lastField := make(map[string]string)
	for _, fi := range interactions {
		counts[fi.SessionID]++
		if fi.EventType == EventFormSubmit {
			submitted[fi.SessionID] = true
		}
		if fi.FieldName != "" {
			if _, seen := lastField[fi.SessionID]; !seen {
				lastField[fi.SessionID] = fi.FieldName
			}
		}
	}

	for session, field := range lastField {
		if submitted[session] || counts[session] < 2 {
			continue
		}
		switch field {
		case "name":
			points.AfterName++
		case "email":
			points.AfterEmail++
		case "socialMedia":
			points.AfterSocialMedia++
		case "appSelection":
			points.AfterAppSelection++
		case "comments":
			points.AfterComments++
		}
	}
	return points
}
