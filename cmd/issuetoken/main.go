// Command issuetoken 签发访问知识库管理接口的 JWT。
package main

import (
	"docqa-go/internal/config"
	"docqa-go/pkg/token"
	"flag"
	"fmt"
	"os"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to config file")
	username := flag.String("user", "admin", "token subject")
	role := flag.String("role", token.RoleAdmin, "token role")
	hours := flag.Int("hours", 0, "validity in hours, defaults to jwt.access_token_expire_hours")
	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "jwt.secret is not configured")
		os.Exit(1)
	}
	if *hours <= 0 {
		*hours = cfg.JWT.AccessTokenExpireHours
	}

	tok, err := token.NewJWTManager(cfg.JWT.Secret, *hours).GenerateToken(*username, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
