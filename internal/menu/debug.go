package menu

import "holoui.ai/internal/sim/geom"

const (
	particleHitbox = "#ff0000"
	particleNormal = "#00ff00"
	particleCenter = "#ffff00"
	particleAnchor = "#ffa500"

	hitboxSteps = 4
)

// debugHitboxes traces the outline and normal of every clickable plane.
func (h *Holder) debugHitboxes() {
	r := h.env.Renderer
	id, world := h.observer.ID(), h.observer.Location().World
	h.OnSession(func(s *Session) bool {
		if s == nil {
			return false
		}
		for _, c := range s.components {
			p := c.Plane()
			if p == nil || !c.IsOpen() {
				continue
			}
			corners := p.Corners()
			for i := range corners {
				from, to := corners[i], corners[(i+1)%len(corners)]
				for step := 0; step < hitboxSteps; step++ {
					t := float64(step) / hitboxSteps
					r.Particle(id, world, geom.Lerp(from, to, t), particleHitbox)
				}
			}
			r.Particle(id, world, p.Center().Add(p.Normal().Mul(.25)), particleNormal)
		}
		return false
	})
}

// debugPositions marks session centers and component locations.
func (h *Holder) debugPositions() {
	r := h.env.Renderer
	id, world := h.observer.ID(), h.observer.Location().World
	h.OnSession(func(s *Session) bool {
		if s == nil {
			return false
		}
		r.Particle(id, world, s.CenterInitialYawAdjusted().Vec, particleCenter)
		for _, c := range s.components {
			r.Particle(id, world, c.location.Vec, particleAnchor)
		}
		return false
	})
	h.OnPreview(func(p *BlockSession) bool {
		if p == nil {
			return false
		}
		r.Particle(id, world, p.center.Vec, particleCenter)
		for _, c := range p.components {
			r.Particle(id, world, c.location.Vec, particleAnchor)
		}
		return false
	})
}
