package models

import "time"

// Headings holds heading texts per level, in document order
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
	H4 []string `json:"h4"`
	H5 []string `json:"h5"`
	H6 []string `json:"h6"`
}

// Image is one <img> element found on a page
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// PageRecord is the structured view of one crawled page.
// Produced once by the parser and treated as read-only afterwards.
type PageRecord struct {
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	MetaDescription string            `json:"metaDescription"`
	MetaKeywords    string            `json:"metaKeywords"`
	OGTags          map[string]string `json:"ogTags"`
	Canonical       string            `json:"canonical"`
	Headings        Headings          `json:"headings"`
	StructuredData  []map[string]any  `json:"structuredData"` // Parsed JSON-LD blocks
	TextContent     string            `json:"textContent"`
	WordCount       int               `json:"wordCount"` // Character count of TextContent
	Images          []Image           `json:"images"`
	InternalLinks   []string          `json:"internalLinks"`
	ExternalLinks   []string          `json:"externalLinks"`
	HasSSL          bool              `json:"hasSSL"`
	HasFAQ          bool              `json:"hasFAQ"`
	HasContactInfo  bool              `json:"hasContactInfo"`
	HasAddress      bool              `json:"hasAddress"`
	HasPhone        bool              `json:"hasPhone"`
	Viewport        string            `json:"viewport"`
	Charset         string            `json:"charset"`
	Lang            string            `json:"lang"`
}

// SchemaTypes returns the distinct @type values of the page's structured data blocks.
// Both string and array-of-string @type values are recognized.
func (p *PageRecord) SchemaTypes() []string {
	var types []string
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	for _, block := range p.StructuredData {
		switch v := block["@type"].(type) {
		case string:
			add(v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
	}
	return types
}

// ScoreDetail is the evaluation of one scoring axis
type ScoreDetail struct {
	Score           int      `json:"score" yaml:"score"`
	MaxScore        int      `json:"maxScore" yaml:"max_score"`
	Label           string   `json:"label" yaml:"label"`
	Comment         string   `json:"comment" yaml:"comment"`
	Issues          []string `json:"issues" yaml:"issues"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// ScoreBreakdown maps the five axes to their scores (each 0..20)
type ScoreBreakdown struct {
	StructuredData int `json:"structuredData" yaml:"structured_data"`
	ContentQuality int `json:"contentQuality" yaml:"content_quality"`
	TechnicalSEO   int `json:"technicalSEO" yaml:"technical_seo"`
	Authority      int `json:"authority" yaml:"authority"`
	AIReadiness    int `json:"aiReadiness" yaml:"ai_readiness"`
}

// Total is the sum of all five axes (0..100)
func (b ScoreBreakdown) Total() int {
	return b.StructuredData + b.ContentQuality + b.TechnicalSEO + b.Authority + b.AIReadiness
}

// ScoreDetails holds the full evaluation of each axis
type ScoreDetails struct {
	StructuredData ScoreDetail `json:"structuredData" yaml:"structured_data"`
	ContentQuality ScoreDetail `json:"contentQuality" yaml:"content_quality"`
	TechnicalSEO   ScoreDetail `json:"technicalSEO" yaml:"technical_seo"`
	Authority      ScoreDetail `json:"authority" yaml:"authority"`
	AIReadiness    ScoreDetail `json:"aiReadiness" yaml:"ai_readiness"`
}

// Axes returns the details in fixed report order
func (d ScoreDetails) Axes() []ScoreDetail {
	return []ScoreDetail{d.StructuredData, d.ContentQuality, d.TechnicalSEO, d.Authority, d.AIReadiness}
}

// PageScore is the per-page score used in the page-by-page table
type PageScore struct {
	URL    string   `json:"url" yaml:"url"`
	Title  string   `json:"title" yaml:"title"`
	Score  int      `json:"score" yaml:"score"`
	Issues []string `json:"issues" yaml:"issues"`
}

// CitationQueryResult is the outcome of one citation probe query
type CitationQueryResult struct {
	Query    string `json:"query" yaml:"query"`
	Response string `json:"response" yaml:"response"`
	Cited    bool   `json:"cited" yaml:"cited"`
}

// AICheckResult is the outcome of the AI citation probe
type AICheckResult struct {
	IsCited                bool                  `json:"isCited" yaml:"is_cited"`
	CitationContext        string                `json:"citationContext" yaml:"citation_context"`
	Queries                []CitationQueryResult `json:"queries" yaml:"queries"`
	OverallAssessment      string                `json:"overallAssessment" yaml:"overall_assessment"`
	ImprovementSuggestions []string              `json:"improvementSuggestions" yaml:"improvement_suggestions"`
}

// CitedCount returns how many probe queries cited the site
func (r *AICheckResult) CitedCount() int {
	n := 0
	for _, q := range r.Queries {
		if q.Cited {
			n++
		}
	}
	return n
}

// DiagnosisRequest is the input of one analysis run
type DiagnosisRequest struct {
	URL      string `json:"url"`
	Industry string `json:"industry"`
	Region   string `json:"region"`
}

// DiagnosisResult is the final, persisted snapshot of one analysis run
type DiagnosisResult struct {
	ID            string         `json:"id" yaml:"id"`
	URL           string         `json:"url" yaml:"url"`
	Industry      string         `json:"industry" yaml:"industry"`
	Region        string         `json:"region" yaml:"region"`
	TotalScore    int            `json:"totalScore" yaml:"total_score"`
	Rank          Rank           `json:"rank" yaml:"rank"`
	Scores        ScoreBreakdown `json:"scores" yaml:"scores"`
	ScoreDetails  ScoreDetails   `json:"scoreDetails" yaml:"score_details"`
	AICheck       *AICheckResult `json:"aiCheck" yaml:"ai_check"`
	PageScores    []PageScore    `json:"pageScores" yaml:"page_scores"`
	PagesAnalyzed int            `json:"pagesAnalyzed" yaml:"pages_analyzed"`
	CreatedAt     time.Time      `json:"createdAt" yaml:"created_at"`
}

// Summary projects the result into its listing row
func (r *DiagnosisResult) Summary() DiagnosisSummary {
	return DiagnosisSummary{
		ID:            r.ID,
		URL:           r.URL,
		Industry:      r.Industry,
		Region:        r.Region,
		TotalScore:    r.TotalScore,
		Rank:          r.Rank,
		PagesAnalyzed: r.PagesAnalyzed,
		CreatedAt:     r.CreatedAt,
	}
}

// DiagnosisSummary is one row of a diagnosis listing
type DiagnosisSummary struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Industry      string    `json:"industry"`
	Region        string    `json:"region"`
	TotalScore    int       `json:"totalScore"`
	Rank          Rank      `json:"rank"`
	PagesAnalyzed int       `json:"pagesAnalyzed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DiagnosisStats holds aggregate figures over all stored diagnoses
type DiagnosisStats struct {
	TotalDiagnoses   int          `json:"totalDiagnoses"`
	AverageScore     int          `json:"averageScore"`
	RankDistribution map[Rank]int `json:"rankDistribution"`
	RecentCount      int          `json:"recentCount"` // Diagnoses created in the trailing 30 days
}
