package config

// DeepMerge returns the deep merge of base with overlay, overlay winning.
// Nested maps are merged recursively; everything else (including slices)
// is replaced wholesale.
func DeepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = DeepMerge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}
