package record

// Direction направление переноса диапазона записей
type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Operation диапазон [Start, Start+Count) одного потока, которого не хватает одной из сторон
type Operation struct {
	Direction Direction
	Stream    Stream
	Start     Idx
	Count     uint64
}

// End индекс сразу за последней записью диапазона
func (o Operation) End() Idx {
	return o.Start + o.Count
}

// Diff сравнивает локальный и удалённый статусы. Потоки, которых больше у локальной
// стороны, выгружаются; потоки, которых больше у relay, в том числе вовсе не известные
// локально, скачиваются. Порядок операций детерминирован: сначала выгрузки, затем загрузки.
func Diff(local, remote Status) []Operation {
	seen := make(map[Stream]struct{})
	for _, s := range local.Streams() {
		seen[s] = struct{}{}
	}
	for _, s := range remote.Streams() {
		seen[s] = struct{}{}
	}

	all := NewStatus()
	for s := range seen {
		all.Set(s.Host, s.Tag, 0)
	}

	var uploads, downloads []Operation
	for _, s := range all.Streams() {
		l := local.Next(s.Host, s.Tag)
		r := remote.Next(s.Host, s.Tag)

		switch {
		case l > r:
			uploads = append(uploads, Operation{Direction: Upload, Stream: s, Start: r, Count: l - r})
		case r > l:
			downloads = append(downloads, Operation{Direction: Download, Stream: s, Start: l, Count: r - l})
		}
	}

	return append(uploads, downloads...)
}
