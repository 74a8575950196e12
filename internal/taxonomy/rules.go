package taxonomy

import "jobsignal-engine/internal/domain"

// SeniorityRule maps title cues to a seniority band at a fixed confidence.
// Any entries match anywhere in the normalized title; Suffixes match only the
// final token (roman-numeral level markers).
type SeniorityRule struct {
	Band       domain.SeniorityBand `yaml:"band"`
	Confidence float64              `yaml:"confidence"`
	Any        []string             `yaml:"any,omitempty"`
	Suffixes   []string             `yaml:"suffixes,omitempty"`
}

// RoleRule maps high-precision title phrases to one canonical role.
type RoleRule struct {
	Role string   `yaml:"role"`
	Any  []string `yaml:"any"`
}

// FallbackRule is the coarse second pass: a generic function word plus an
// optional domain qualifier, at reduced confidence. Empty Domains means the
// bare function word is enough.
type FallbackRule struct {
	Role       string   `yaml:"role"`
	Confidence float64  `yaml:"confidence"`
	Function   string   `yaml:"function"`
	Domains    []string `yaml:"domains,omitempty"`
}

// Rules is the full cascade. The slice order is part of the contract: the
// first matching rule wins, so reordering entries changes results.
type Rules struct {
	Seniority []SeniorityRule `yaml:"seniority_rules"`
	Roles     []RoleRule      `yaml:"role_rules"`
	Fallbacks []FallbackRule  `yaml:"fallback_rules"`
}

// RoleRuleConfidence is the fixed confidence attached to every high-precision
// role rule hit.
const RoleRuleConfidence = 0.90

// Defaults when the seniority cascade falls through: a non-empty title with
// no seniority cue is assumed mid-level, at low confidence. This is an
// explicit default, not a missing value.
const (
	DefaultSeniorityBand       = domain.SeniorityMid
	DefaultSeniorityConfidence = 0.30
)

// DefaultRules returns the built-in cascade. Deployments can override it via
// taxonomy.rules_path; the returned value must be treated as read-only.
func DefaultRules() Rules {
	return Rules{Seniority: defaultSeniorityRules, Roles: defaultRoleRules, Fallbacks: defaultFallbackRules}
}

var defaultSeniorityRules = []SeniorityRule{
	// Exception before the generic lead cues: a staff nurse is a line RN.
	{Band: domain.SeniorityMid, Confidence: 0.85, Any: []string{"staff nurse"}},

	{Band: domain.SeniorityExec, Confidence: 0.95, Any: []string{
		"chief", "vp", "vice president", "svp", "evp",
		"ceo", "cto", "cfo", "coo", "cio", "ciso",
		"president", "founder",
	}},
	{Band: domain.SeniorityDirector, Confidence: 0.93, Any: []string{
		"director", "head of",
	}},
	{Band: domain.SeniorityManager, Confidence: 0.90, Any: []string{
		"manager", "mgr", "supervisor", "superintendent", "foreman",
	}},
	{Band: domain.SeniorityLead, Confidence: 0.90, Any: []string{
		"lead", "principal", "staff",
	}},
	{Band: domain.SenioritySenior, Confidence: 0.90, Any: []string{
		"senior", "sr",
	}},
	{Band: domain.SeniorityMid, Confidence: 0.85, Any: []string{
		"mid level", "intermediate",
	}},
	{Band: domain.SeniorityEntry, Confidence: 0.88, Any: []string{
		"junior", "jr", "entry level", "new grad", "new graduate",
		"graduate", "early career", "trainee", "apprentice", "associate",
	}},
	{Band: domain.SeniorityIntern, Confidence: 0.95, Any: []string{
		"intern", "internship", "co op", "coop", "summer intern",
	}},

	// Weak trailing roman-numeral cues. A bare trailing I is a reliable
	// entry-level convention; II+ are more ambiguous.
	{Band: domain.SeniorityEntry, Confidence: 0.88, Suffixes: []string{"i", "1"}},
	{Band: domain.SeniorityMid, Confidence: 0.80, Suffixes: []string{"ii", "2"}},
	{Band: domain.SenioritySenior, Confidence: 0.80, Suffixes: []string{"iii", "iv", "3", "4"}},
}

var defaultRoleRules = []RoleRule{
	// Management phrases come before the engineering phrases they contain.
	{Role: "Engineering Manager", Any: []string{
		"engineering manager", "software engineering manager", "software development manager",
		"vp of engineering", "head of engineering", "director of engineering",
	}},
	{Role: "Product Manager", Any: []string{"product manager", "product owner", "technical product manager"}},
	{Role: "Project Manager", Any: []string{"project manager", "program manager", "scrum master", "delivery manager"}},

	// Specialized engineering before the generic software rule.
	{Role: "Machine Learning Engineer", Any: []string{"machine learning engineer", "ml engineer", "deep learning engineer", "ai engineer"}},
	{Role: "Data Engineer", Any: []string{"data engineer", "analytics engineer", "etl developer"}},
	{Role: "Data Scientist", Any: []string{"data scientist", "applied scientist", "research scientist"}},
	{Role: "Data Analyst", Any: []string{"data analyst", "business intelligence analyst", "bi analyst", "bi developer"}},
	{Role: "Site Reliability Engineer", Any: []string{"site reliability engineer", "sre", "reliability engineer"}},
	{Role: "DevOps Engineer", Any: []string{"devops engineer", "devops", "platform engineer", "infrastructure engineer", "cloud engineer", "build engineer", "release engineer"}},
	{Role: "Security Engineer", Any: []string{"security engineer", "application security", "appsec", "cybersecurity engineer", "infosec engineer"}},
	{Role: "Security Analyst", Any: []string{"security analyst", "soc analyst", "threat analyst"}},
	{Role: "Embedded Engineer", Any: []string{"embedded engineer", "embedded software", "firmware engineer", "firmware developer"}},
	{Role: "QA Engineer", Any: []string{"qa engineer", "quality assurance", "test engineer", "sdet", "quality engineer"}},
	{Role: "Solutions Architect", Any: []string{"solutions architect", "solution architect", "cloud architect", "enterprise architect", "technical architect"}},
	{Role: "Software Engineer", Any: []string{
		"software engineer", "software developer", "swe",
		"full stack", "fullstack", "backend engineer", "backend developer", "back end engineer",
		"frontend engineer", "frontend developer", "front end engineer",
		"web developer", "mobile engineer", "ios engineer", "android engineer",
		"application developer", "applications developer", "programmer",
	}},
	{Role: "Network Engineer", Any: []string{"network engineer", "network administrator", "network technician"}},
	{Role: "Database Administrator", Any: []string{"database administrator", "dba", "database engineer"}},
	{Role: "Systems Administrator", Any: []string{"systems administrator", "system administrator", "sysadmin", "it administrator"}},
	{Role: "IT Support Specialist", Any: []string{"it support", "help desk", "helpdesk", "desktop support", "technical support specialist", "support technician"}},
	{Role: "Technical Writer", Any: []string{"technical writer", "documentation engineer"}},
	{Role: "Product Designer", Any: []string{"ux designer", "ui designer", "product designer", "ux researcher", "user experience", "interaction designer"}},

	// Healthcare.
	{Role: "Nurse Practitioner", Any: []string{"nurse practitioner"}},
	{Role: "Registered Nurse", Any: []string{"registered nurse", "rn", "staff nurse", "charge nurse"}},
	{Role: "Licensed Practical Nurse", Any: []string{"licensed practical nurse", "lpn", "lvn"}},
	{Role: "Certified Nursing Assistant", Any: []string{"certified nursing assistant", "cna", "nursing assistant", "patient care technician"}},
	{Role: "Physician Assistant", Any: []string{"physician assistant"}},
	{Role: "Physician", Any: []string{"physician", "hospitalist", "internist", "family medicine"}},
	{Role: "Pharmacist", Any: []string{"pharmacist"}},
	{Role: "Pharmacy Technician", Any: []string{"pharmacy technician", "pharmacy tech"}},
	{Role: "Physical Therapist", Any: []string{"physical therapist", "physiotherapist"}},
	{Role: "Occupational Therapist", Any: []string{"occupational therapist"}},
	{Role: "Medical Assistant", Any: []string{"medical assistant"}},
	{Role: "Medical Laboratory Technician", Any: []string{"medical laboratory", "lab technician", "phlebotomist"}},
	{Role: "Radiologic Technologist", Any: []string{"radiologic technologist", "radiology tech", "x ray tech", "imaging technologist"}},

	// Government and public sector.
	{Role: "Policy Analyst", Any: []string{"policy analyst", "policy advisor"}},
	{Role: "Program Analyst", Any: []string{"program analyst", "management analyst", "budget analyst"}},
	{Role: "Contract Specialist", Any: []string{"contract specialist", "contracting officer", "procurement specialist", "acquisition specialist"}},
	{Role: "Intelligence Analyst", Any: []string{"intelligence analyst", "all source analyst"}},
	{Role: "Social Worker", Any: []string{"social worker", "case manager", "caseworker", "case worker"}},
	{Role: "Urban Planner", Any: []string{"urban planner", "city planner"}},

	// Finance, legal, business.
	{Role: "Financial Analyst", Any: []string{"financial analyst", "finance analyst", "fp a analyst"}},
	{Role: "Accountant", Any: []string{"accountant", "accounting manager"}},
	{Role: "Auditor", Any: []string{"auditor", "internal audit"}},
	{Role: "Controller", Any: []string{"controller", "comptroller"}},
	{Role: "Attorney", Any: []string{"attorney", "lawyer", "legal counsel", "counsel"}},
	{Role: "Paralegal", Any: []string{"paralegal", "legal assistant"}},
	{Role: "Human Resources Generalist", Any: []string{"human resources", "hr generalist", "hr business partner", "hrbp", "people operations"}},
	{Role: "Recruiter", Any: []string{"recruiter", "talent acquisition", "sourcer"}},
	{Role: "Sales Development Representative", Any: []string{"sales development representative", "sdr", "business development representative", "bdr"}},
	{Role: "Account Executive", Any: []string{"account executive", "sales executive", "account manager", "sales representative", "sales rep"}},
	{Role: "Marketing Manager", Any: []string{"marketing manager", "marketing specialist", "digital marketing", "growth marketing", "content marketing", "seo specialist"}},
	{Role: "Customer Support Representative", Any: []string{"customer support", "customer service", "customer success", "call center"}},
	{Role: "Operations Manager", Any: []string{"operations manager", "operations analyst", "business operations"}},
	{Role: "Supply Chain Analyst", Any: []string{"supply chain", "logistics coordinator", "logistics analyst"}},
	{Role: "Administrative Assistant", Any: []string{"administrative assistant", "executive assistant", "office assistant", "receptionist"}},

	// Trades and industrial.
	{Role: "Electrician", Any: []string{"electrician"}},
	{Role: "Plumber", Any: []string{"plumber", "pipefitter"}},
	{Role: "HVAC Technician", Any: []string{"hvac"}},
	{Role: "Welder", Any: []string{"welder", "welding"}},
	{Role: "Carpenter", Any: []string{"carpenter"}},
	{Role: "Machinist", Any: []string{"machinist", "cnc operator", "cnc machinist"}},
	{Role: "Diesel Mechanic", Any: []string{"diesel mechanic", "diesel technician"}},
	{Role: "Automotive Technician", Any: []string{"automotive technician", "auto mechanic", "automotive mechanic"}},
	{Role: "Maintenance Technician", Any: []string{"maintenance technician", "maintenance mechanic", "facilities technician"}},
	{Role: "Truck Driver", Any: []string{"truck driver", "cdl driver", "class a driver", "delivery driver"}},
	{Role: "Warehouse Associate", Any: []string{"warehouse associate", "warehouse worker", "forklift operator", "material handler", "order picker", "package handler"}},
	{Role: "Construction Laborer", Any: []string{"construction laborer", "construction worker", "general laborer"}},
	{Role: "Heavy Equipment Operator", Any: []string{"heavy equipment operator", "crane operator", "excavator operator"}},

	// Education and services.
	{Role: "Professor", Any: []string{"professor", "lecturer", "adjunct"}},
	{Role: "Teacher", Any: []string{"teacher", "instructor", "educator", "tutor"}},
	{Role: "Chef", Any: []string{"chef", "sous chef", "line cook", "cook"}},
	{Role: "Security Guard", Any: []string{"security guard", "security officer"}},
}

var defaultFallbackRules = []FallbackRule{
	{Role: "Software Engineer", Confidence: 0.70, Function: "engineer", Domains: []string{"software", "platform", "cloud", "systems", "api", "distributed"}},
	{Role: "Software Engineer", Confidence: 0.55, Function: "developer"},
	{Role: "Data Analyst", Confidence: 0.65, Function: "analyst", Domains: []string{"data", "analytics", "reporting", "insights"}},
	{Role: "Financial Analyst", Confidence: 0.65, Function: "analyst", Domains: []string{"financial", "finance", "investment", "treasury"}},
	{Role: "Engineering Manager", Confidence: 0.70, Function: "manager", Domains: []string{"engineering", "software", "technology", "technical"}},
	{Role: "Operations Manager", Confidence: 0.60, Function: "manager", Domains: []string{"operations", "plant", "warehouse", "facility", "branch"}},
	{Role: "Registered Nurse", Confidence: 0.60, Function: "nurse"},
	{Role: "Maintenance Technician", Confidence: 0.55, Function: "technician", Domains: []string{"maintenance", "repair", "equipment"}},
}
