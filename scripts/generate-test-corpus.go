//go:build ignore

// Package main generates a synthetic document corpus for benchmarking
// ingestion and retrieval.
// Usage: go run scripts/generate-test-corpus.go -docs 500 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numDocs   = flag.Int("docs", 500, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var policyTemplate = `%s Policy

Effective date: 2025-01-01. This policy applies to all %s at the company.

1. Scope

This document describes how %s is handled, including requests, approvals,
and exceptions. Questions should be directed to the %s team.

2. Eligibility

All %s are eligible after completing the probation period. Eligibility is
reviewed %s and recorded in the internal system of record.

3. Process

Requests for %s must be submitted at least %d business days in advance.
Approval is granted by the direct manager unless the request exceeds the
standard allowance, in which case the %s team reviews it.

4. Exceptions

Exceptions require written approval and are logged for audit purposes.
Repeated exceptions trigger a policy review in the following quarter.

5. Revision history

This policy supersedes the %d version. The next scheduled review is in
twelve months.
`

var faqTemplate = `Frequently Asked Questions: %s

Q: Who do I contact about %s?
A: The %s team handles all %s requests. Open a ticket or reach out during
office hours.

Q: How long does a %s request take?
A: Standard requests are processed within %d business days. Urgent requests
can be escalated through your manager.

Q: What happens if my request is denied?
A: You will receive a written explanation. You may appeal within %d days by
replying to the decision notice.

Q: Is there a limit on %s?
A: Yes. The standard allowance is reviewed %s and published on the internal
portal. Exceptions follow the %s policy.

Q: Where can I find more information?
A: The full %s policy is available in the document library, along with
related guides and the change log.
`

var handbookTemplate = `# %s Handbook

## Overview

This chapter of the employee handbook covers %s. It is maintained by the
%s team and reviewed %s.

## Getting started

New employees should read this chapter during their first week. The
onboarding checklist includes a confirmation step for %s.

## Responsibilities

- Employees follow the %s process described below.
- Managers approve routine requests and escalate exceptions.
- The %s team owns the policy and handles appeals.

## Process

1. Submit a request through the internal portal.
2. Wait for manager approval, typically within %d business days.
3. Confirm the outcome and keep the confirmation for your records.

## Related documents

See the %s policy and the %s FAQ for details not covered here.
`

var meetingTemplate = `Meeting notes: %s working group

Date: 2025-%02d-%02d
Attendees: %s team, %s team

Agenda

- Review open items from the previous session on %s.
- Discuss the proposed change to the %s process.
- Plan the %s rollout for next quarter.

Decisions

The group agreed to shorten the approval window from %d to %d business
days. The %s team will update the policy document and notify managers.

Action items

- Update the %s handbook chapter.
- Draft the announcement for the internal portal.
- Schedule a follow-up review in four weeks.
`

var (
	topics = []string{
		"Vacation", "Remote Work", "Expense Reimbursement", "Travel",
		"Equipment", "Parental Leave", "Sick Leave", "Training",
		"Security", "Data Retention", "Onboarding", "Offboarding",
		"Performance Review", "Relocation", "Overtime", "Benefits",
		"Conference Attendance", "Home Office", "Sabbatical", "Referral",
	}
	teams = []string{
		"People Operations", "Finance", "IT", "Legal", "Facilities",
		"Security", "Workplace", "Payroll",
	}
	audiences = []string{
		"employees", "full-time staff", "contractors", "team leads",
		"new hires", "managers",
	}
	cadences = []string{
		"annually", "quarterly", "twice a year", "every January",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	subdirs := []string{"policies", "faqs", "handbook", "notes"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating subdirectory %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d documents in %s...\n", *numDocs, *outputDir)

	policies := *numDocs * 35 / 100
	faqs := *numDocs * 25 / 100
	handbook := *numDocs * 20 / 100
	notes := *numDocs - policies - faqs - handbook

	generated := 0
	for i := 0; i < policies; i++ {
		if err := generatePolicy(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating policy %d: %v\n", i, err)
		}
		generated++
	}
	for i := 0; i < faqs; i++ {
		if err := generateFAQ(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating FAQ %d: %v\n", i, err)
		}
		generated++
	}
	for i := 0; i < handbook; i++ {
		if err := generateHandbook(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating handbook chapter %d: %v\n", i, err)
		}
		generated++
	}
	for i := 0; i < notes; i++ {
		if err := generateNotes(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating notes %d: %v\n", i, err)
		}
		generated++
	}

	fmt.Printf("Generated %d documents successfully.\n", generated)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func slug(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
}

func generatePolicy(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	team := pick(rng, teams)
	audience := pick(rng, audiences)
	cadence := pick(rng, cadences)
	days := 2 + rng.Intn(8)
	year := 2022 + rng.Intn(3)

	content := fmt.Sprintf(policyTemplate,
		topic, audience,
		strings.ToLower(topic), team,
		audience, cadence,
		strings.ToLower(topic), days, team,
		year,
	)

	filename := filepath.Join(*outputDir, "policies",
		fmt.Sprintf("%s-policy-%d.txt", slug(topic), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateFAQ(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	team := pick(rng, teams)
	cadence := pick(rng, cadences)
	days := 2 + rng.Intn(8)
	appealDays := 5 + rng.Intn(10)

	lower := strings.ToLower(topic)
	content := fmt.Sprintf(faqTemplate,
		topic,
		lower, team, lower,
		lower, days,
		appealDays,
		lower, cadence, lower,
		topic,
	)

	filename := filepath.Join(*outputDir, "faqs",
		fmt.Sprintf("%s-faq-%d.txt", slug(topic), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateHandbook(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	team := pick(rng, teams)
	cadence := pick(rng, cadences)
	days := 2 + rng.Intn(8)

	lower := strings.ToLower(topic)
	content := fmt.Sprintf(handbookTemplate,
		topic, lower, team, cadence,
		lower,
		lower, team,
		days,
		topic, topic,
	)

	filename := filepath.Join(*outputDir, "handbook",
		fmt.Sprintf("%s-handbook-%d.md", slug(topic), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateNotes(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	teamA := pick(rng, teams)
	teamB := pick(rng, teams)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)
	oldDays := 5 + rng.Intn(5)
	newDays := 2 + rng.Intn(3)

	lower := strings.ToLower(topic)
	content := fmt.Sprintf(meetingTemplate,
		topic, month, day,
		teamA, teamB,
		lower, lower, lower,
		oldDays, newDays, teamA,
		lower,
	)

	filename := filepath.Join(*outputDir, "notes",
		fmt.Sprintf("%s-notes-%d.txt", slug(topic), index))
	return os.WriteFile(filename, []byte(content), 0644)
}
