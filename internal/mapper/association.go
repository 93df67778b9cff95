package mapper

// observation is the minimal shape association needs from a transformed
// detection: the planar (x,y) position gate uses only the first two
// components of z.
type observation struct {
	x, y float64
}

// associate performs the greedy, Mahalanobis-gated, Euclidean-ranked
// assignment of spec §4.1: for each detection (in input order) find the
// closest not-yet-used landmark whose innovation passes the squared-
// Mahalanobis gate tau_local, using planar Euclidean distance to rank and
// break ties among gated candidates (smaller distance wins; equal
// distances favour the lower landmark ID for determinism). Landmarks that
// receive no detection this tick are left untouched here — the caller
// ages them implicitly via the tick counter.
//
// obs must expose z[0], z[1] as planar x, y (mapper.Ingest guarantees
// this for both dim=4 and dim=5 layouts).
func (m *Mapper) associate(observations []ingestObservation) (matches map[int64]int, unmatched []int) {
	matches = make(map[int64]int)
	used := make(map[int64]bool)

	type candidate struct {
		landmarkID int64
		dist2      float64
	}

	for oi, o := range observations {
		var best *candidate
		m.arena.forEach(func(lm *Landmark) {
			if used[lm.ID] {
				return
			}
			mean := lm.kf.mean()
			cov := lm.kf.diagonal()
			dx := o.z[0] - mean[0]
			dy := o.z[1] - mean[1]

			// Innovation covariance for the planar subspace: diagonal
			// approximation Sxx = Pxx + Rxx, Syy = Pyy + Ryy (the mapper's
			// state covariance is maintained densely by gonum but the
			// gating test only needs the marginal position variances,
			// consistent with R being isotropic per spec §4.1).
			sxx := cov[0] + o.r[0]
			syy := cov[1] + o.r[1]
			if sxx <= 0 || syy <= 0 {
				return
			}
			mahal2 := dx*dx/sxx + dy*dy/syy
			if mahal2 > m.cfg.GatingMahalanobisSq {
				return
			}

			dist2 := dx*dx + dy*dy
			if best == nil || dist2 < best.dist2 || (dist2 == best.dist2 && lm.ID < best.landmarkID) {
				best = &candidate{landmarkID: lm.ID, dist2: dist2}
			}
		})

		if best != nil {
			matches[best.landmarkID] = oi
			used[best.landmarkID] = true
		} else {
			unmatched = append(unmatched, oi)
		}
	}
	return matches, unmatched
}
