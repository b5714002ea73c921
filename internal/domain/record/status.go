package record

import "sort"

// Status последний известный idx для каждого потока (host, tag)
type Status map[HostID]map[Tag]Idx

func NewStatus() Status {
	return make(Status)
}

// Set запоминает последний idx потока
func (s Status) Set(host HostID, tag Tag, idx Idx) {
	tags, ok := s[host]
	if !ok {
		tags = make(map[Tag]Idx)
		s[host] = tags
	}
	tags[tag] = idx
}

// Get возвращает последний idx потока, false если поток пуст
func (s Status) Get(host HostID, tag Tag) (Idx, bool) {
	tags, ok := s[host]
	if !ok {
		return 0, false
	}
	idx, ok := tags[tag]
	return idx, ok
}

// Next индекс, который получит следующая запись потока
func (s Status) Next(host HostID, tag Tag) Idx {
	idx, ok := s.Get(host, tag)
	if !ok {
		return 0
	}
	return idx + 1
}

// Streams возвращает все потоки в детерминированном порядке
func (s Status) Streams() []Stream {
	streams := make([]Stream, 0, len(s))
	for host, tags := range s {
		for tag := range tags {
			streams = append(streams, Stream{Host: host, Tag: tag})
		}
	}

	sort.Slice(streams, func(i, j int) bool {
		if streams[i].Host != streams[j].Host {
			return streams[i].Host < streams[j].Host
		}
		return streams[i].Tag < streams[j].Tag
	})

	return streams
}

// Count общее число записей по всем потокам
func (s Status) Count() uint64 {
	var n uint64
	for _, tags := range s {
		for _, idx := range tags {
			n += idx + 1
		}
	}
	return n
}

// Equal совпадают ли статусы по всем потокам
func (s Status) Equal(o Status) bool {
	if s.Count() != o.Count() {
		return false
	}
	for host, tags := range s {
		for tag, idx := range tags {
			if other, ok := o.Get(host, tag); !ok || other != idx {
				return false
			}
		}
	}
	for host, tags := range o {
		for tag := range tags {
			if _, ok := s.Get(host, tag); !ok {
				return false
			}
		}
	}
	return true
}
