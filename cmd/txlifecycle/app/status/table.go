package status

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

var header = table.Row{"TxID", "Status", "Attempts", "Batch", "Locked by", "Notify", "Updated"}

func requestsTable(t table.Writer, reqs []*txreq.Request) table.Writer {
	t.AppendHeader(header)

	counts := make(map[txreq.Status]int)
	for _, req := range reqs {
		t.AppendRow(table.Row{
			req.TxID,
			req.Status,
			req.Attempts,
			req.Batch,
			req.LockedBy,
			len(req.Notify.TransactionIDs),
			req.UpdatedAt.UTC().Format(time.RFC3339),
		})
		counts[req.Status]++
	}

	t.AppendFooter(table.Row{"Total", len(reqs)})

	for _, status := range txreq.AllStatuses {
		if counts[status] == 0 {
			continue
		}
		t.AppendFooter(table.Row{"", status, counts[status]})
	}

	return t
}
