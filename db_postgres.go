package main

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	db  *sql.DB
	dsn string
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	d.SetMaxOpenConns(10)
	d.SetMaxIdleConns(5)
	p := &PostgresDB{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresDB) Init() error {
	// rely on migrations to create tables; just verify connectivity
	if err := p.db.Ping(); err != nil {
		return err
	}
	return nil
}

func (p *PostgresDB) FindPage(pageKey string) (*Page, error) {
	row := p.db.QueryRow(`SELECT page_key,template_ref,active,created_at FROM pages WHERE page_key = $1 AND active = true`, pageKey)
	var pg Page
	if err := row.Scan(&pg.Key, &pg.TemplateRef, &pg.Active, &pg.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &pg, nil
}

func (p *PostgresDB) FindCodeEntry(fingerprint string) (*CodeEntry, error) {
	row := p.db.QueryRow(`SELECT c.page_key, c.expires_at FROM access_codes c JOIN pages pg ON pg.page_key = c.page_key WHERE c.fingerprint = $1 AND c.active = true AND pg.active = true`, fingerprint)
	var e CodeEntry
	var expires sql.NullTime
	if err := row.Scan(&e.PageKey, &expires); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		e.ExpiresAt = &t
	}
	return &e, nil
}

func (p *PostgresDB) UpsertPage(pageKey, templateRef string) (*Page, error) {
	row := p.db.QueryRow(`INSERT INTO pages(page_key,template_ref,active,created_at) VALUES($1,$2,true,now())
		ON CONFLICT(page_key) DO UPDATE SET template_ref = EXCLUDED.template_ref, active = true
		RETURNING page_key,template_ref,active,created_at`, pageKey, templateRef)
	var pg Page
	if err := row.Scan(&pg.Key, &pg.TemplateRef, &pg.Active, &pg.CreatedAt); err != nil {
		return nil, err
	}
	return &pg, nil
}

func (p *PostgresDB) SetPageActive(pageKey string, active bool) error {
	_, err := p.db.Exec(`UPDATE pages SET active = $1 WHERE page_key = $2`, active, pageKey)
	return err
}

func (p *PostgresDB) UpsertCode(fingerprint, pageKey string, expiresAt *time.Time) error {
	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	_, err := p.db.Exec(`INSERT INTO access_codes(fingerprint,page_key,active,expires_at,created_at) VALUES($1,$2,true,$3,now())
		ON CONFLICT(fingerprint) DO NOTHING`, fingerprint, pageKey, expires)
	return err
}

func (p *PostgresDB) SetCodeActive(fingerprint string, active bool) error {
	_, err := p.db.Exec(`UPDATE access_codes SET active = $1 WHERE fingerprint = $2`, active, fingerprint)
	return err
}

func (p *PostgresDB) CreateContactMessage(m *ContactMessage) (int64, error) {
	var id int64
	err := p.db.QueryRow(`INSERT INTO contact_messages(name,email,message,company,phone,service,page,created_at) VALUES($1,$2,$3,$4,$5,$6,$7,now()) RETURNING id`,
		m.Name, m.Email, m.Message, nullable(m.Company), nullable(m.Phone), nullable(m.Service), nullable(m.Page)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (p *PostgresDB) close() error { return p.db.Close() }
func (p *PostgresDB) ping() bool   { return p.db.Ping() == nil }
