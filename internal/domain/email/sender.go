package email

import "sort"

// SenderStat groups the working set by sender address.
type SenderStat struct {
	Sender     string   `json:"sender"`
	Count      int      `json:"count"`
	MessageIDs []string `json:"message_ids"`
	Category   Category `json:"category,omitempty"`
}

// AggregateSenders counts messages per sender, most frequent first with ties
// ordered by address. Message IDs keep input order.
func AggregateSenders(msgs []Message) []SenderStat {
	index := make(map[string]int)
	stats := make([]SenderStat, 0)

	for _, m := range msgs {
		i, ok := index[m.Sender]
		if !ok {
			i = len(stats)
			index[m.Sender] = i
			stats = append(stats, SenderStat{Sender: m.Sender, Category: m.Category})
		}
		stats[i].Count++
		stats[i].MessageIDs = append(stats[i].MessageIDs, m.ID)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Sender < stats[j].Sender
		}
		return stats[i].Count > stats[j].Count
	})
	return stats
}

// Senders returns the distinct addresses of stats in order.
func Senders(stats []SenderStat) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.Sender
	}
	return out
}
