package leads

// Service is one entry of the offering catalog shown on the first form step.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var serviceCatalog = []Service{
	{ID: "ai", Name: "Business Automation", Description: "Streamline repetitive tasks and save time"},
	{ID: "web", Name: "Website & Digital Presence", Description: "Build a strong, conversion-focused online presence"},
	{ID: "crm", Name: "Client Management System", Description: "Organize leads, clients, and communications efficiently"},
	{ID: "stepup", Name: "Business Growth & Performance", Description: "Improve processes, insights, and scalability"},
	{ID: "prajek", Name: "Project & Workflow Management", Description: "Keep operations structured and on track"},
}

// Catalog returns a copy of the service catalog.
func Catalog() []Service {
	out := make([]Service, len(serviceCatalog))
	copy(out, serviceCatalog)
	return out
}

// LookupService resolves a service by display name or id.
func LookupService(nameOrID string) (Service, bool) {
	for _, s := range serviceCatalog {
		if s.Name == nameOrID || s.ID == nameOrID {
			return s, true
		}
	}
	return Service{}, false
}
