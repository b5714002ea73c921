package record

import "context"

// Walk обходит поток с индекса start страницами по batch записей
func Walk(ctx context.Context, s Store, host HostID, tag Tag, start Idx, batch uint64, fn func(Record) error) error {
	for {
		records, err := s.Range(ctx, host, tag, start, batch)
		if err != nil {
			return err
		}

		for _, r := range records {
			if err := fn(r); err != nil {
				return err
			}
		}

		if uint64(len(records)) < batch {
			return nil
		}
		start += uint64(len(records))
	}
}
