package domain

// The methods below let the local cache collections assign ids and
// timestamps without knowing the concrete entity.

func (s Sale) RecordID() ID { return s.ID }
func (s Sale) Created() Timestamp { return s.CreatedAt }
func (s *Sale) Stamp(id ID, created, updated Timestamp) {
	s.ID, s.CreatedAt, s.UpdatedAt = id, created, updated
}

func (e Expense) RecordID() ID { return e.ID }
func (e Expense) Created() Timestamp { return e.CreatedAt }
func (e *Expense) Stamp(id ID, created, updated Timestamp) {
	e.ID, e.CreatedAt, e.UpdatedAt = id, created, updated
}

func (p Product) RecordID() ID { return p.ID }
func (p Product) Created() Timestamp { return p.CreatedAt }
func (p *Product) Stamp(id ID, created, updated Timestamp) {
	p.ID, p.CreatedAt, p.UpdatedAt = id, created, updated
}

func (u User) RecordID() ID { return u.ID }
func (u User) Created() Timestamp { return u.CreatedAt }
func (u *User) Stamp(id ID, created, updated Timestamp) {
	u.ID, u.CreatedAt, u.UpdatedAt = id, created, updated
}

func (m StockMovement) RecordID() ID { return m.ID }
func (m StockMovement) Created() Timestamp { return m.CreatedAt }
func (m *StockMovement) Stamp(id ID, created, updated Timestamp) {
	m.ID, m.CreatedAt, m.UpdatedAt = id, created, updated
}

func (l SystemLog) RecordID() ID { return l.ID }
func (l SystemLog) Created() Timestamp { return l.CreatedAt }
func (l *SystemLog) Stamp(id ID, created, _ Timestamp) {
	l.ID, l.CreatedAt = id, created
}
