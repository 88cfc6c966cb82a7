package agent

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// Tool names as presented to the model.
const (
	ToolSearchCompanies      = "search_companies"
	ToolVisitWebsite         = "visit_website"
	ToolAnalyzeCompanyFit    = "analyze_company_fit"
	ToolSaveCompany          = "save_company"
	ToolRefineSearchStrategy = "refine_search_strategy"
)

// ToolRequest is a closed union of the tool calls the model may issue.
// Each variant carries a statically typed argument struct; the dispatcher
// switches on the concrete type, never on the raw name string.
type ToolRequest interface {
	toolName() string
}

// SearchCompaniesArgs asks for a web search.
type SearchCompaniesArgs struct {
	Query string `json:"query"`
	Count int    `json:"count,omitempty"`
}

func (SearchCompaniesArgs) toolName() string { return ToolSearchCompanies }

// VisitWebsiteArgs asks for a multi-page crawl of one site.
type VisitWebsiteArgs struct {
	URL string `json:"url"`
}

func (VisitWebsiteArgs) toolName() string { return ToolVisitWebsite }

// AnalyzeCompanyFitArgs makes the model's fit-judgment step explicit and
// loggable. The engine only acknowledges it; the judgment happens in the
// model's next turn.
type AnalyzeCompanyFitArgs struct {
	Domain      string          `json:"domain"`
	CompanyData json.RawMessage `json:"company_data,omitempty"`
}

func (AnalyzeCompanyFitArgs) toolName() string { return ToolAnalyzeCompanyFit }

// ContactInput is one contact as supplied by the model in save_company.
type ContactInput struct {
	FullName    string `json:"full_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// SaveCompanyArgs persists a qualified company plus its contacts.
type SaveCompanyArgs struct {
	Domain      string         `json:"domain"`
	CompanyName string         `json:"company_name,omitempty"`
	Description string         `json:"description,omitempty"`
	Industry    string         `json:"industry,omitempty"`
	TechStack   []string       `json:"tech_stack,omitempty"`
	Contacts    []ContactInput `json:"contacts"`
}

func (SaveCompanyArgs) toolName() string { return ToolSaveCompany }

// RefineSearchStrategyArgs records the model's course correction.
type RefineSearchStrategyArgs struct {
	CurrentResults int    `json:"current_results"`
	TargetResults  int    `json:"target_results"`
	Reasoning      string `json:"reasoning"`
}

func (RefineSearchStrategyArgs) toolName() string { return ToolRefineSearchStrategy }

// ParseToolCall decodes a named tool call into its typed variant.
func ParseToolCall(name string, input json.RawMessage) (ToolRequest, error) {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	switch name {
	case ToolSearchCompanies:
		var args SearchCompaniesArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, eris.Wrapf(err, "agent: parse %s args", name)
		}
		return args, nil
	case ToolVisitWebsite:
		var args VisitWebsiteArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, eris.Wrapf(err, "agent: parse %s args", name)
		}
		return args, nil
	case ToolAnalyzeCompanyFit:
		var args AnalyzeCompanyFitArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, eris.Wrapf(err, "agent: parse %s args", name)
		}
		return args, nil
	case ToolSaveCompany:
		var args SaveCompanyArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, eris.Wrapf(err, "agent: parse %s args", name)
		}
		return args, nil
	case ToolRefineSearchStrategy:
		var args RefineSearchStrategyArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, eris.Wrapf(err, "agent: parse %s args", name)
		}
		return args, nil
	default:
		return nil, eris.Errorf("agent: unknown tool %q", name)
	}
}

// ToolDefinitions returns the tool schema advertised to the model.
func ToolDefinitions() []anthropic.Tool {
	return []anthropic.Tool{
		{
			Name:        ToolSearchCompanies,
			Description: "Search the web for companies matching a free-text query. Returns a ranked list of results with title, url, snippet and domain.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Free-text search query"},
					"count": {"type": "integer", "description": "Maximum results to return (default 10)"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        ToolVisitWebsite,
			Description: "Crawl a company website: homepage plus up to five high-value pages (about, team, contact). Returns aggregated emails, phones, social links, tech stack and page metadata.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Root URL of the site to crawl"}
				},
				"required": ["url"]
			}`),
		},
		{
			Name:        ToolAnalyzeCompanyFit,
			Description: "Record that you are evaluating a company against the target profile. State your analysis in your next message.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"domain": {"type": "string", "description": "Company domain under evaluation"},
					"company_data": {"type": "object", "description": "The signals you are evaluating"}
				},
				"required": ["domain"]
			}`),
		},
		{
			Name:        ToolSaveCompany,
			Description: "Persist a qualified company and its contacts. At least one contact must have an email or a phone number, otherwise the save is rejected.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"domain": {"type": "string"},
					"company_name": {"type": "string"},
					"description": {"type": "string"},
					"industry": {"type": "string"},
					"tech_stack": {"type": "array", "items": {"type": "string"}},
					"contacts": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"full_name": {"type": "string"},
								"title": {"type": "string"},
								"email": {"type": "string"},
								"phone": {"type": "string"},
								"linkedin_url": {"type": "string"}
							}
						}
					}
				},
				"required": ["domain", "contacts"]
			}`),
		},
		{
			Name:        ToolRefineSearchStrategy,
			Description: "Record why you are changing search strategy. Returns whether you should keep searching for more companies.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"current_results": {"type": "integer", "description": "Companies saved so far"},
					"target_results": {"type": "integer", "description": "Target number of companies"},
					"reasoning": {"type": "string", "description": "Why the strategy is changing"}
				},
				"required": ["current_results", "target_results", "reasoning"]
			}`),
		},
	}
}
