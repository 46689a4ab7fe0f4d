package workers

import "strings"

// defaultChunkSize is the retrieval chunk target in characters
const defaultChunkSize = 1500

// SplitText slices text into retrieval-sized chunks, preferring paragraph
// and sentence boundaries over hard cuts.
func SplitText(text string, size int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= size {
		return []string{trimmed}
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(trimmed, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > size {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if len(para) > size {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, splitLong(para, size)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitLong cuts an oversized paragraph at sentence ends where possible
func splitLong(para string, size int) []string {
	var chunks []string
	for len(para) > size {
		cut := size
		if idx := strings.LastIndexAny(para[:size], ".!?"); idx > size/2 {
			cut = idx + 1
		} else if idx := strings.LastIndex(para[:size], " "); idx > size/2 {
			cut = idx
		}
		chunks = append(chunks, strings.TrimSpace(para[:cut]))
		para = strings.TrimSpace(para[cut:])
	}
	if para != "" {
		chunks = append(chunks, para)
	}
	return chunks
}
