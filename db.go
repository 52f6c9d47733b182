package main

import (
	"database/sql"
	"time"
)

// DB interface for the page and code directories plus contact storage
type DB interface {
	Init() error
	// Directory reads (request path)
	FindPage(pageKey string) (*Page, error)
	FindCodeEntry(fingerprint string) (*CodeEntry, error)
	// Seeding writes (admin path, idempotent)
	UpsertPage(pageKey, templateRef string) (*Page, error)
	SetPageActive(pageKey string, active bool) error
	UpsertCode(fingerprint, pageKey string, expiresAt *time.Time) error
	SetCodeActive(fingerprint string, active bool) error
	// Contact form
	CreateContactMessage(m *ContactMessage) (int64, error)
}

// Memory DB
type MemDB struct {
	pages    map[string]*Page
	codes    map[string]*AccessCode
	messages []*ContactMessage
	seq      int64
}

func NewMemoryDB() *MemDB {
	return &MemDB{pages: map[string]*Page{}, codes: map[string]*AccessCode{}, seq: 1}
}

func (m *MemDB) Init() error { return nil }

func (m *MemDB) FindPage(pageKey string) (*Page, error) {
	if p, ok := m.pages[pageKey]; ok && p.Active {
		return p, nil
	}
	return nil, nil
}

func (m *MemDB) FindCodeEntry(fingerprint string) (*CodeEntry, error) {
	c, ok := m.codes[fingerprint]
	if !ok || !c.Active {
		return nil, nil
	}
	// An inactive page hides its codes even while the code row stays active.
	p, ok := m.pages[c.PageKey]
	if !ok || !p.Active {
		return nil, nil
	}
	return &CodeEntry{PageKey: c.PageKey, ExpiresAt: c.ExpiresAt}, nil
}

func (m *MemDB) UpsertPage(pageKey, templateRef string) (*Page, error) {
	if p, ok := m.pages[pageKey]; ok {
		p.TemplateRef = templateRef
		p.Active = true
		return p, nil
	}
	p := &Page{Key: pageKey, TemplateRef: templateRef, Active: true, CreatedAt: time.Now()}
	m.pages[pageKey] = p
	return p, nil
}

func (m *MemDB) SetPageActive(pageKey string, active bool) error {
	if p, ok := m.pages[pageKey]; ok {
		p.Active = active
	}
	return nil
}

func (m *MemDB) UpsertCode(fingerprint, pageKey string, expiresAt *time.Time) error {
	if _, ok := m.codes[fingerprint]; ok {
		return nil
	}
	m.codes[fingerprint] = &AccessCode{
		Fingerprint: fingerprint,
		PageKey:     pageKey,
		Active:      true,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (m *MemDB) SetCodeActive(fingerprint string, active bool) error {
	if c, ok := m.codes[fingerprint]; ok {
		c.Active = active
	}
	return nil
}

func (m *MemDB) CreateContactMessage(msg *ContactMessage) (int64, error) {
	msg.ID = m.seq
	msg.CreatedAt = time.Now()
	m.seq++
	m.messages = append(m.messages, msg)
	return msg.ID, nil
}

// SQLite DB
type SQLiteDB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteDB{db: d, path: path}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pages (page_key TEXT PRIMARY KEY, template_ref TEXT NOT NULL, active INTEGER NOT NULL DEFAULT 1, created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS access_codes (fingerprint TEXT PRIMARY KEY, page_key TEXT NOT NULL REFERENCES pages(page_key), active INTEGER NOT NULL DEFAULT 1, expires_at INTEGER, created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS contact_messages (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, email TEXT NOT NULL, message TEXT NOT NULL, company TEXT, phone TEXT, service TEXT, page TEXT, created_at TEXT);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteDB) FindPage(pageKey string) (*Page, error) {
	row := s.db.QueryRow(`SELECT page_key,template_ref,active FROM pages WHERE page_key = ? AND active = 1`, pageKey)
	var p Page
	var active int
	if err := row.Scan(&p.Key, &p.TemplateRef, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Active = active != 0
	return &p, nil
}

func (s *SQLiteDB) FindCodeEntry(fingerprint string) (*CodeEntry, error) {
	row := s.db.QueryRow(`SELECT c.page_key, c.expires_at FROM access_codes c JOIN pages p ON p.page_key = c.page_key WHERE c.fingerprint = ? AND c.active = 1 AND p.active = 1`, fingerprint)
	var e CodeEntry
	var expires sql.NullInt64
	if err := row.Scan(&e.PageKey, &expires); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if expires.Valid {
		t := time.Unix(expires.Int64, 0)
		e.ExpiresAt = &t
	}
	return &e, nil
}

func (s *SQLiteDB) UpsertPage(pageKey, templateRef string) (*Page, error) {
	_, err := s.db.Exec(`INSERT INTO pages(page_key,template_ref,active,created_at) VALUES(?,?,1,datetime('now'))
		ON CONFLICT(page_key) DO UPDATE SET template_ref = excluded.template_ref, active = 1`, pageKey, templateRef)
	if err != nil {
		return nil, err
	}
	return &Page{Key: pageKey, TemplateRef: templateRef, Active: true}, nil
}

func (s *SQLiteDB) SetPageActive(pageKey string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := s.db.Exec(`UPDATE pages SET active = ? WHERE page_key = ?`, v, pageKey)
	return err
}

func (s *SQLiteDB) UpsertCode(fingerprint, pageKey string, expiresAt *time.Time) error {
	var expires sql.NullInt64
	if expiresAt != nil {
		expires = sql.NullInt64{Int64: expiresAt.Unix(), Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO access_codes(fingerprint,page_key,active,expires_at,created_at) VALUES(?,?,1,?,datetime('now'))
		ON CONFLICT(fingerprint) DO NOTHING`, fingerprint, pageKey, expires)
	return err
}

func (s *SQLiteDB) SetCodeActive(fingerprint string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := s.db.Exec(`UPDATE access_codes SET active = ? WHERE fingerprint = ?`, v, fingerprint)
	return err
}

func (s *SQLiteDB) CreateContactMessage(m *ContactMessage) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO contact_messages(name,email,message,company,phone,service,page,created_at) VALUES(?,?,?,?,?,?,?,datetime('now'))`,
		m.Name, m.Email, m.Message, nullable(m.Company), nullable(m.Phone), nullable(m.Service), nullable(m.Page))
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// lifecycle helpers
func (m *MemDB) close() error { return nil }
func (m *MemDB) ping() bool   { return true }

func (s *SQLiteDB) close() error { return s.db.Close() }
func (s *SQLiteDB) ping() bool   { return s.db.Ping() == nil }
