package sessions

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusEmpty           Status = "empty"
	StatusCVUploaded      Status = "cv_uploaded"
	StatusAnalyzed        Status = "analyzed"
	StatusInterviewActive Status = "interview_active"
	StatusGenerated       Status = "generated"
	StatusDeleted         Status = "deleted"
)

// Category groups gaps by the kind of discrepancy they describe.
type Category string

const (
	CategorySkills     Category = "skills"
	CategoryExperience Category = "experience"
	CategoryKeywords   Category = "keywords"
	CategoryMetrics    Category = "metrics"
)

// Categories lists every category in display order.
var Categories = []Category{CategorySkills, CategoryExperience, CategoryKeywords, CategoryMetrics}

// Rank returns the display position of c, or len(Categories) when unknown.
func (c Category) Rank() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}

func (c Category) Valid() bool { return c.Rank() < len(Categories) }

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Weight is the score penalty and ordering weight of an importance level.
func (i Importance) Weight() int {
	switch i {
	case ImportanceHigh:
		return 10
	case ImportanceMedium:
		return 6
	case ImportanceLow:
		return 3
	default:
		return 0
	}
}

func (i Importance) Valid() bool { return i.Weight() > 0 }

type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	QuestionSkipped  QuestionStatus = "skipped"
)

// Contact holds the candidate's contact block.
type Contact struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Job is one experience entry.
type Job struct {
	Company          string   `json:"company"`
	Title            string   `json:"title"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements     []string `json:"achievements,omitempty"`
}

type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree,omitempty"`
	Field          string `json:"field,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
}

// Resume is resume content, structured where a parse succeeded and raw text otherwise.
type Resume struct {
	RawText        string      `json:"raw_text"`
	Contact        Contact     `json:"contact"`
	Summary        string      `json:"summary,omitempty"`
	Experience     []Job       `json:"experience,omitempty"`
	Education      []Education `json:"education,omitempty"`
	Skills         []string    `json:"skills,omitempty"`
	Certifications []string    `json:"certifications,omitempty"`
	Languages      []string    `json:"languages,omitempty"`
}

// FileRef points at an object in the object store.
type FileRef struct {
	Key       string `json:"key"`
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Checksum  string `json:"checksum,omitempty"`
}

// Gap is one discrepancy between the resume and the job description.
type Gap struct {
	ID          string     `json:"id"`
	Category    Category   `json:"category"`
	Description string     `json:"description"`
	Importance  Importance `json:"importance"`
	Question    string     `json:"question,omitempty"`
	Order       int        `json:"order"`
}

// GapAnalysis is the canonical gap set of one analysis run.
type GapAnalysis struct {
	SkillsGaps     []Gap     `json:"skills_gaps"`
	ExperienceGaps []Gap     `json:"experience_gaps"`
	KeywordsGaps   []Gap     `json:"keywords_gaps"`
	MetricsGaps    []Gap     `json:"metrics_gaps"`
	MatchScore     int       `json:"match_score"`
	ReportedScore  int       `json:"reported_score"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// All returns every gap in discovery order.
func (g GapAnalysis) All() []Gap {
	out := make([]Gap, 0, len(g.SkillsGaps)+len(g.ExperienceGaps)+len(g.KeywordsGaps)+len(g.MetricsGaps))
	out = append(out, g.SkillsGaps...)
	out = append(out, g.ExperienceGaps...)
	out = append(out, g.KeywordsGaps...)
	out = append(out, g.MetricsGaps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Question is one interview prompt covering one or more gaps.
type Question struct {
	ID            string         `json:"id"`
	Prompt        string         `json:"prompt"`
	GapType       Category       `json:"gap_type"`
	CoveredGapIDs []string       `json:"covered_gap_ids"`
	Status        QuestionStatus `json:"status"`
	AnswerText    string         `json:"answer_text,omitempty"`
}

// Terminal reports whether the question was answered or skipped.
func (q Question) Terminal() bool {
	return q.Status == QuestionAnswered || q.Status == QuestionSkipped
}

// Comparison is the before/after result of one generation.
type Comparison struct {
	OriginalScore  int      `json:"original_score"`
	OptimizedScore int      `json:"optimized_score"`
	ReportedScore  int      `json:"reported_score"`
	GapsAddressed  []string `json:"gaps_addressed"`
	GapsRemaining  []string `json:"gaps_remaining"`
	Improvements   []string `json:"improvements"`
}

// Artifacts references the rendered files of the last generation.
type Artifacts struct {
	PDFKey      string    `json:"pdf_key"`
	DOCXKey     string    `json:"docx_key"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Keys lists the stored object keys. A nil receiver has none.
func (a *Artifacts) Keys() []string {
	if a == nil {
		return nil
	}
	return []string{a.PDFKey, a.DOCXKey}
}

// Session is the root aggregate of one tailoring workflow.
type Session struct {
	ID              string       `json:"id"`
	Status          Status       `json:"status"`
	Resume          *Resume      `json:"resume,omitempty"`
	ResumeFile      *FileRef     `json:"resume_file,omitempty"`
	JobDescription  string       `json:"job_description,omitempty"`
	GapAnalysis     *GapAnalysis `json:"gap_analysis,omitempty"`
	Questions       []Question   `json:"questions,omitempty"`
	GeneratedResume *Resume      `json:"generated_resume,omitempty"`
	Comparison      *Comparison  `json:"comparison,omitempty"`
	Artifacts       *Artifacts   `json:"artifacts,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Answers maps question id to answer text for every terminal question.
// Skipped questions map to the empty string.
func (s Session) Answers() map[string]string {
	out := make(map[string]string)
	for _, q := range s.Questions {
		if q.Terminal() {
			out[q.ID] = q.AnswerText
		}
	}
	return out
}

// AnsweredCount returns the number of terminal questions.
func (s Session) AnsweredCount() int {
	n := 0
	for _, q := range s.Questions {
		if q.Terminal() {
			n++
		}
	}
	return n
}

// ClearDerived drops everything computed from a previous analysis.
func (s *Session) ClearDerived() {
	s.GapAnalysis = nil
	s.Questions = nil
	s.GeneratedResume = nil
	s.Comparison = nil
	s.Artifacts = nil
}

// Clone returns a deep copy so callers never share slices with a store.
func (s Session) Clone() Session {
	out := s
	out.Resume = s.Resume.Clone()
	out.GeneratedResume = s.GeneratedResume.Clone()
	if s.ResumeFile != nil {
		f := *s.ResumeFile
		out.ResumeFile = &f
	}
	if s.GapAnalysis != nil {
		g := *s.GapAnalysis
		g.SkillsGaps = append([]Gap(nil), s.GapAnalysis.SkillsGaps...)
		g.ExperienceGaps = append([]Gap(nil), s.GapAnalysis.ExperienceGaps...)
		g.KeywordsGaps = append([]Gap(nil), s.GapAnalysis.KeywordsGaps...)
		g.MetricsGaps = append([]Gap(nil), s.GapAnalysis.MetricsGaps...)
		out.GapAnalysis = &g
	}
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			q.CoveredGapIDs = append([]string(nil), q.CoveredGapIDs...)
			out.Questions[i] = q
		}
	}
	if s.Comparison != nil {
		c := *s.Comparison
		c.GapsAddressed = append([]string(nil), s.Comparison.GapsAddressed...)
		c.GapsRemaining = append([]string(nil), s.Comparison.GapsRemaining...)
		c.Improvements = append([]string(nil), s.Comparison.Improvements...)
		out.Comparison = &c
	}
	if s.Artifacts != nil {
		a := *s.Artifacts
		out.Artifacts = &a
	}
	return out
}

// Clone returns a deep copy of r. A nil resume clones to nil.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	out := *r
	out.Skills = append([]string(nil), r.Skills...)
	out.Certifications = append([]string(nil), r.Certifications...)
	out.Languages = append([]string(nil), r.Languages...)
	out.Education = append([]Education(nil), r.Education...)
	if r.Experience != nil {
		out.Experience = make([]Job, len(r.Experience))
		for i, j := range r.Experience {
			j.Responsibilities = append([]string(nil), j.Responsibilities...)
			j.Achievements = append([]string(nil), j.Achievements...)
			out.Experience[i] = j
		}
	}
	return &out
}

// Summary is the status view returned by GET /session/{id}.
type Summary struct {
	ID                string `json:"id"`
	Status            Status `json:"status"`
	HasCV             bool   `json:"has_cv"`
	HasAnalysis       bool   `json:"has_analysis"`
	QuestionsAnswered int    `json:"questions_answered"`
	TotalQuestions    int    `json:"total_questions"`
	HasGeneratedCV    bool   `json:"has_generated_cv"`
	CreatedAt         string `json:"created_at"`
}

// Summarize builds the status view of s.
func Summarize(s Session) Summary {
	return Summary{
		ID:                s.ID,
		Status:            s.Status,
		HasCV:             s.Resume != nil,
		HasAnalysis:       s.GapAnalysis != nil,
		QuestionsAnswered: s.AnsweredCount(),
		TotalQuestions:    len(s.Questions),
		HasGeneratedCV:    s.GeneratedResume != nil,
		CreatedAt:         s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
