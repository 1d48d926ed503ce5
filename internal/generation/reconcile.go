package generation

import (
	"strings"

	"cv-optimizer/internal/sessions"
)

var placeholders = map[string]struct{}{
	"string":    {},
	"none":      {},
	"n/a":       {},
	"na":        {},
	"null":      {},
	"undefined": {},
	"tbd":       {},
}

// CleanString collapses whitespace and blanks out placeholder values.
func CleanString(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if _, ok := placeholders[strings.ToLower(s)]; ok {
		return ""
	}
	return s
}

// CleanList drops blanks and placeholders and dedupes case-insensitively,
// keeping the first spelling and the original order. It never returns nil.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = CleanString(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Reconcile repairs a synthesized resume against the original: facts the
// candidate supplied (contact details, employers, titles, dates) are never
// lost or rewritten, and certifications are not invented.
func Reconcile(original sessions.Resume, synthesized *sessions.Resume, synthesizedText string) sessions.Resume {
	var out sessions.Resume
	if synthesized != nil {
		out = *synthesized.Clone()
	} else {
		out = *original.Clone()
	}

	out.Summary = CleanString(out.Summary)
	out.Skills = CleanList(out.Skills)
	out.Certifications = CleanList(out.Certifications)
	out.Languages = CleanList(out.Languages)
	for i := range out.Experience {
		job := &out.Experience[i]
		job.Company = CleanString(job.Company)
		job.Title = CleanString(job.Title)
		job.StartDate = CleanString(job.StartDate)
		job.EndDate = CleanString(job.EndDate)
		job.Responsibilities = CleanList(job.Responsibilities)
		job.Achievements = CleanList(job.Achievements)
	}

	out.Contact = restoreContact(out.Contact, original.Contact)
	out.Experience = restoreJobs(out.Experience, original.Experience)

	if len(CleanList(original.Certifications)) == 0 {
		out.Certifications = nil
	}

	out.RawText = original.RawText
	if strings.TrimSpace(synthesizedText) != "" {
		out.RawText = strings.TrimSpace(synthesizedText)
	}
	return out
}

func restoreContact(got, orig sessions.Contact) sessions.Contact {
	fill := func(dst *string, src string) {
		*dst = CleanString(*dst)
		if *dst == "" {
			*dst = CleanString(src)
		}
	}
	fill(&got.Name, orig.Name)
	fill(&got.Email, orig.Email)
	fill(&got.Phone, orig.Phone)
	fill(&got.Location, orig.Location)
	fill(&got.LinkedIn, orig.LinkedIn)
	return got
}

// restoreJobs forces the original company, title and dates onto each
// synthesized job that matches an original employer, and re-appends
// original jobs the synthesis dropped.
func restoreJobs(got, orig []sessions.Job) []sessions.Job {
	matched := make([]bool, len(got))
	for _, o := range orig {
		company := strings.ToLower(CleanString(o.Company))
		if company == "" {
			continue
		}
		idx := -1
		for i, g := range got {
			if matched[i] {
				continue
			}
			c := strings.ToLower(g.Company)
			if c != "" && (strings.Contains(c, company) || strings.Contains(company, c)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			job := o
			job.Responsibilities = CleanList(o.Responsibilities)
			job.Achievements = CleanList(o.Achievements)
			got = append(got, job)
			matched = append(matched, true)
			continue
		}
		matched[idx] = true
		job := &got[idx]
		job.Company = CleanString(o.Company)
		if t := CleanString(o.Title); t != "" {
			job.Title = t
		}
		if d := CleanString(o.StartDate); d != "" {
			job.StartDate = d
		}
		if d := CleanString(o.EndDate); d != "" {
			job.EndDate = d
		}
	}
	return got
}
