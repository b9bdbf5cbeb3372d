package main

import (
	"fmt"
	"io"
	"strconv"

	"dupecull/internal/dedup"
)

func printScanSummary(w io.Writer, report *dedup.Report) {
	rows := [][]string{
		{"Run ID", report.RunID},
		{"Scanned", strconv.Itoa(report.Scanned)},
		{"Hashed", strconv.Itoa(report.Hashed)},
		{"Cache hits", strconv.Itoa(report.CacheHits)},
		{"Reused archives", strconv.Itoa(report.ReusedArchives)},
		{"Errors", strconv.Itoa(len(report.Errors))},
	}
	if interactiveOutput(w) {
		fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s: %s\n", row[0], row[1])
	}
}

func printGroups(w io.Writer, report *dedup.Report) {
	if len(report.Groups) == 0 {
		fmt.Fprintln(w, "No near-duplicate groups found.")
		return
	}

	var rows [][]string
	for i, group := range report.Groups {
		groupNo := strconv.Itoa(i + 1)
		decisions := make(map[string]dedupDecision, len(group.Members))
		for _, kept := range group.Kept {
			decisions[kept] = dedupDecision{verdict: "keep"}
		}
		for _, removal := range group.Removals {
			decisions[removal.Candidate.URI] = dedupDecision{
				verdict: "remove",
				reason:  string(removal.Reason),
				detail:  removal.Detail,
			}
		}
		for _, member := range group.Members {
			decision := decisions[member]
			rows = append(rows, []string{groupNo, member, decision.verdict, decision.reason, decision.detail})
		}
	}

	if interactiveOutput(w) {
		fmt.Fprintln(w, renderTable(
			[]string{"Group", "Member", "Decision", "Reason", "Detail"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "group %s\t%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3], row[4])
	}
}

type dedupDecision struct {
	verdict string
	reason  string
	detail  string
}

func printReportTail(w io.Writer, report *dedup.Report) {
	for _, message := range report.Messages {
		fmt.Fprintln(w, message)
	}
	for _, errText := range report.Errors {
		fmt.Fprintf(w, "error: %s\n", errText)
	}
}
