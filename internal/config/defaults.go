package config

import "time"

var DefaultKeywords = []string{
	"IT Infrastructure",
	"Systems Administrator",
	"Cybersecurity",
	"Associate IT",
	"Junior IT",
}

var DefaultCountries = []string{"Canada", "Germany", "Ireland", "UK", "Portugal", "New Zealand"}

var DefaultSources = []Source{
	{ID: "linkedin", URL: "https://www.linkedin.com/jobs/search/?keywords={keyword}+visa+sponsorship&location={country}"},
	{ID: "indeed", URL: "https://www.indeed.com/jobs?q={keyword}+visa+sponsorship&l={country}"},
	{ID: "glassdoor", URL: "https://www.glassdoor.com/Job/jobs.htm?sc.keyword={keyword}+visa+sponsorship&locT=C&locId={country}"},
	{ID: "turing", URL: "https://www.turing.com/jobs"},
	{ID: "relocate-me", URL: "https://relocate.me/search?keywords={keyword}&location={country}"},
	{ID: "landing-jobs", URL: "https://landing.jobs/jobs?keywords={keyword}&countries[]={country}"},
	{ID: "remote-ok", URL: "https://remoteok.com/remote-{keyword}-jobs"},
	{ID: "wellfound", URL: "https://wellfound.com/jobs?query={keyword}+visa+sponsorship"},
	{ID: "workvisajobs", URL: "https://workvisajobs.com/jobs?q={keyword}+visa+sponsorship&l={country}"},
	{ID: "job-bank-canada", URL: "https://www.jobbank.gc.ca/jobsearch/jobsearch?searchstring={keyword}&locationstring={country}"},
	{ID: "hireforeignworker", URL: "https://www.hireforeignworker.ca/jobs?search={keyword}&location={country}"},
	{ID: "jobgurus", URL: "https://www.jobgurus.ca/search?q={keyword}+visa+sponsorship&l={country}"},
	{ID: "jobsincanada", URL: "https://www.jobsincanada.com/search?q={keyword}+visa+sponsorship&l={country}"},
	{ID: "eluta", URL: "https://www.eluta.ca/search?q={keyword}+visa+sponsorship&l={country}"},
	{ID: "jooble", URL: "https://jooble.org/SearchResult?ukw={keyword}+visa+sponsorship&rid={country}"},
	{ID: "workopolis", URL: "https://www.workopolis.com/jobsearch/find-jobs?ak={keyword}+visa+sponsorship&l={country}"},
	{ID: "monster-canada", URL: "https://www.monster.ca/jobs/search/?q={keyword}+visa+sponsorship&where={country}"},
	{ID: "hays", URL: "https://www.hays.com/job-search/results?query={keyword}+visa+sponsorship&location={country}"},
	{ID: "naukri", URL: "https://www.naukri.com/{keyword}-jobs-in-{country}"},
	{ID: "randstad", URL: "https://www.randstad.com/jobs/q-{keyword}/in-{country}/"},
	{ID: "teksystems", URL: "https://www.teksystems.com/en/search?q={keyword}&location={country}"},
}

func Defaults() Config {
	var c Config

	c.App.LogLevel = "info"
	c.App.Schedule = "0 */6 * * *"
	c.App.Listen = "127.0.0.1:38471"
	c.App.EventBuffer = 64

	c.Search.Keywords = append([]string(nil), DefaultKeywords...)
	c.Search.Countries = append([]string(nil), DefaultCountries...)
	c.Sources = append([]Source(nil), DefaultSources...)

	c.Fetch.Timeout = 10 * time.Second
	c.Fetch.MaxRetries = 2
	c.Fetch.BackoffBase = time.Second
	c.Fetch.BackoffFactor = 2
	c.Fetch.RatePerSource = 5
	c.Fetch.RateWindow = time.Second
	c.Fetch.Parallelism = 10

	c.Filters.SponsorshipPhrases = []string{"visa sponsorship"}
	c.Filters.SeniorityTerms = []string{"fresher", "junior", "associate"}
	c.Filters.ExcludePhrases = []string{
		"no visa sponsorship",
		"without visa sponsorship",
		"not provide visa sponsorship",
		"unable to provide visa sponsorship",
		"cannot offer visa sponsorship",
	}

	c.Store.Driver = "sqlite"

	c.Outreach.Enabled = true
	c.Outreach.Delay = 10 * time.Second
	c.Outreach.MaxAttempts = 3
	c.Outreach.Recipient = "recruiter@example.com"
	c.Outreach.ResumePath = "resume.txt"
	c.Outreach.Generator.Provider = "template"
	c.Outreach.Sink.Provider = "log"
	c.Outreach.Sink.Host = "smtp.gmail.com"
	c.Outreach.Sink.Port = 465
	c.Outreach.Sink.Mailbox = "Drafts"

	c.Mirror.XLSXPath = "job_tracker.xlsx"
	c.Mirror.Sheet = "Job Tracker"
	c.Export.CSVPath = "job_results.csv"
	c.Metrics.Job = "visahunt"
	return c
}
