package mysqldriver

import "testing"

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConnectionConfig
		want string
	}{
		{
			name: "tcp, no tls",
			cfg:  ConnectionConfig{Host: "127.0.0.1", Port: 3306, User: "root", Password: "secret", Database: "orders"},
			want: "root:secret@tcp(127.0.0.1:3306)/orders?parseTime=true&interpolateParams=true",
		},
		{
			name: "socket",
			cfg:  ConnectionConfig{Socket: "/var/run/mysqld/mysqld.sock", User: "root", Password: "secret", Database: "orders"},
			want: "root:secret@unix(/var/run/mysqld/mysqld.sock)/orders?parseTime=true&interpolateParams=true",
		},
		{
			name: "defaults to information_schema when no database given",
			cfg:  ConnectionConfig{Host: "127.0.0.1", Port: 3306, User: "root", Password: "secret"},
			want: "root:secret@tcp(127.0.0.1:3306)/information_schema?parseTime=true&interpolateParams=true",
		},
		{
			name: "required tls",
			cfg:  ConnectionConfig{Host: "127.0.0.1", Port: 3306, User: "root", Password: "secret", Database: "orders", TLSMode: "required"},
			want: "root:secret@tcp(127.0.0.1:3306)/orders?parseTime=true&interpolateParams=true&tls=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDSNRejectsInvalidTLSMode(t *testing.T) {
	_, err := buildDSN(ConnectionConfig{Host: "127.0.0.1", Port: 3306, TLSMode: "bogus"})
	if err == nil {
		t.Fatalf("expected an error for an invalid TLS mode")
	}
}

func TestConnectRejectsCustomTLSWithoutCA(t *testing.T) {
	_, err := Connect(ConnectionConfig{Host: "127.0.0.1", Port: 3306, TLSMode: "custom"})
	if err == nil {
		t.Fatalf("expected an error when --tls=custom is given without --tls-ca")
	}
}
