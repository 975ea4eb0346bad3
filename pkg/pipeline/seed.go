package pipeline

import "github.com/elonfeng/feedpulse/pkg/feedback"

// DemoFeedback is the fixed data set loaded by Seed.
var DemoFeedback = []feedback.Submission{
	{Source: "github", SourceID: "issue-1042", Author: "mkovacs", Content: "The CLI crashes with a nil pointer panic when the config file is missing. This blocks our whole CI pipeline."},
	{Source: "github", SourceID: "issue-1047", Author: "dev-lena", Content: "Feature request: please add dark mode to the dashboard. Staring at the white background at night is painful."},
	{Source: "email", Author: "cfo@northwind.example", Content: "We were charged twice for the annual plan this month. Please refund the duplicate charge as soon as possible."},
	{Source: "email", Author: "ops@contoso.example", Content: "Your support team resolved our SSO issue in under an hour. Fantastic service, thank you!"},
	{Source: "twitter", Author: "@sam_builds", Content: "Just migrated our analytics to this and the new query editor is blazing fast. Loving it."},
	{Source: "twitter", Author: "@angry_admin", Content: "Third outage this week. Our customers cannot log in and nobody is answering the status page. Unacceptable."},
	{Source: "support", SourceID: "ticket-88213", Author: "Priya N.", Content: "Exports to CSV are silently truncated at 10,000 rows. We only noticed after sending wrong numbers to our board."},
	{Source: "support", SourceID: "ticket-88240", Author: "Tom B.", Content: "How do I invite teammates with read-only access? I could not find it in the docs."},
	{Source: "appstore", Author: "jules_r", Content: "App drains my battery in the background even when I am not using it. Two stars until this is fixed."},
	{Source: "appstore", Author: "happyhiker", Content: "Clean design, quick sync between phone and laptop. Exactly what I needed for my notes."},
	{Source: "slack", Author: "#customer-voice", Content: "Enterprise prospect says the lack of audit logs is a deal breaker for their security review."},
	{Source: "slack", Author: "#customer-voice", Content: "Onboarding checklist got great feedback in the last three demos, people finished setup without help."},
	{Source: "survey", Author: "nps-2026-q1", Content: "Pricing jumped 40% at renewal with no new features we use. We are evaluating alternatives."},
	{Source: "survey", Author: "nps-2026-q1", Content: "Search is okay but results are sometimes slow to load on large workspaces."},
	{Source: "github", SourceID: "issue-1051", Author: "rpatel", Content: "Data loss: edits made while offline are overwritten after reconnecting. Lost a day of work."},
}
