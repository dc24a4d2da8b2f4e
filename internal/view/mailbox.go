// Package view holds the headless view-models behind the browser pages: the
// mailbox and archive read-models, the add-mail form, the auth prompt and the
// profile editor.
package view

import (
	"sort"

	"github.io/infrasutra/orgmail/internal/store"
)

type SortOrder string

const (
	Newest SortOrder = "newest"
	Oldest SortOrder = "oldest"
)

// Mailbox projects a mailbox for display, ordered by date (newest first
// unless order is Oldest). Records with equal dates keep their store order.
// The input slice is never reordered.
func Mailbox(records []store.MailRecord, order SortOrder) []store.MailRecord {
	rows := make([]store.MailRecord, len(records))
	copy(rows, records)
	sort.SliceStable(rows, func(i, j int) bool {
		if order == Oldest {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Date > rows[j].Date
	})
	return rows
}

type Summary struct {
	Incoming int `json:"incoming"`
	Outgoing int `json:"outgoing"`
	Archived int `json:"archived"`
}

type DashboardModel struct {
	Summary  Summary            `json:"summary"`
	Archived []store.MailRecord `json:"archived"`
}

// Dashboard lists the archive in store order together with live counts.
func Dashboard(snap store.Snapshot) DashboardModel {
	archived := snap.Archived
	if archived == nil {
		archived = []store.MailRecord{}
	}
	return DashboardModel{
		Summary: Summary{
			Incoming: len(snap.Incoming),
			Outgoing: len(snap.Outgoing),
			Archived: len(snap.Archived),
		},
		Archived: archived,
	}
}
