package paper

// FilterFigures drops related figures whose image path is not in assets and
// returns the dropped paths in encounter order. Captions and types left empty
// by the model are filled from the manifest record.
func FilterFigures(p *StructuredPaper, assets []Asset) []string {
	if p == nil {
		return nil
	}
	idx := AssetIndex(assets)

	var dropped []string
	for i := range p.Sections {
		kept := make([]FigureInfo, 0, len(p.Sections[i].RelatedFigures))
		for _, f := range p.Sections[i].RelatedFigures {
			a, ok := idx[f.ImagePath]
			if !ok {
				dropped = append(dropped, f.ImagePath)
				continue
			}
			if f.Type == "" {
				f.Type = a.Type
			}
			if f.Caption == nil && a.Caption != "" {
				f.Caption = StringPtr(a.Caption)
			}
			kept = append(kept, f)
		}
		p.Sections[i].RelatedFigures = kept
	}
	return dropped
}
