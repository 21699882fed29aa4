package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/ruteri/secret-service/api/secrethandler"
	"github.com/ruteri/secret-service/cmd/flags"
	"github.com/ruteri/secret-service/interfaces"
	"github.com/ruteri/secret-service/secretservice"
	"github.com/urfave/cli/v2"
)

var flagCaller = &cli.StringFlag{
	Name:    "caller",
	Usage:   "caller identity; sessions and prompts belong to it. A random one is generated if empty",
	EnvVars: []string{"SECRET_SERVICE_CALLER"},
}

var flagAlgorithm = &cli.StringFlag{
	Name:  "algorithm",
	Value: secretservice.AlgorithmPlain,
	Usage: "session algorithm: 'plain' or '" + secretservice.AlgorithmDHAES + "'",
}

var flagSession = &cli.StringFlag{
	Name:     "session",
	Required: true,
	Usage:    "session object path",
}

var flagKey = &cli.StringFlag{
	Name:  "key",
	Usage: "hex session key printed by open-session, decrypts secrets of DH sessions",
}

var flagItem = &cli.StringSliceFlag{
	Name:     "item",
	Required: true,
	Usage:    "item object path, repeatable",
}

var flagAttr = &cli.StringSliceFlag{
	Name:  "attr",
	Usage: "attribute to match as key=value, repeatable",
}

var flagPath = &cli.StringFlag{
	Name:     "path",
	Required: true,
	Usage:    "prompt object path",
}

var flagWindow = &cli.StringFlag{
	Name:  "window-id",
	Usage: "window identifier passed to the prompt",
}

func newClient(cCtx *cli.Context) *secrethandler.Client {
	caller := cCtx.String(flagCaller.Name)
	if caller == "" {
		caller = uuid.Must(uuid.NewRandom()).String()
	}
	return secrethandler.NewClient(cCtx.String(flags.ServerAddrFlag.Name), caller)
}

func sessionFrom(cCtx *cli.Context) (*secrethandler.ClientSession, error) {
	var key []byte
	if k := cCtx.String(flagKey.Name); k != "" {
		var err error
		key, err = hex.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("invalid session key: %w", err)
		}
	}
	return secrethandler.NewClientSession(interfaces.ObjectPath(cCtx.String(flagSession.Name)), key), nil
}

func parseAttributes(pairs []string) (map[string]string, error) {
	attributes := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("attribute %q is not key=value", pair)
		}
		attributes[k] = v
	}
	return attributes, nil
}

type decodedSecret struct {
	Item        interfaces.ObjectPath `json:"item"`
	Session     interfaces.ObjectPath `json:"session"`
	ContentType string                `json:"content_type"`
	Value       string                `json:"value"`
}

func decode(session *secrethandler.ClientSession, item interfaces.ObjectPath, secret interfaces.Secret) (decodedSecret, error) {
	plaintext, err := session.Decode(secret)
	if err != nil {
		return decodedSecret{}, err
	}
	return decodedSecret{Item: item, Session: secret.Session, ContentType: secret.ContentType, Value: string(plaintext)}, nil
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func main() {
	app := &cli.App{
		Name:  "secretctl",
		Usage: "Talk to a secret service over its HTTP binding",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flagCaller,
		},
		Commands: []*cli.Command{
			{
				Name:  "open-session",
				Usage: "negotiate a session and print its path, caller and key",
				Flags: []cli.Flag{flagAlgorithm},
				Action: func(cCtx *cli.Context) error {
					client := newClient(cCtx)

					var session *secrethandler.ClientSession
					var err error
					switch algorithm := cCtx.String(flagAlgorithm.Name); algorithm {
					case secretservice.AlgorithmPlain:
						session, err = client.OpenPlainSession()
					case secretservice.AlgorithmDHAES:
						session, err = client.OpenDHSession()
					default:
						_, _, err = client.OpenSession(algorithm, "")
					}
					if err != nil {
						return err
					}

					return printJSON(map[string]string{
						"caller":  client.Caller,
						"session": string(session.Path),
						"key":     hex.EncodeToString(session.Key()),
					})
				},
			},
			{
				Name:  "search",
				Usage: "search items by attributes",
				Flags: []cli.Flag{flagAttr},
				Action: func(cCtx *cli.Context) error {
					attributes, err := parseAttributes(cCtx.StringSlice(flagAttr.Name))
					if err != nil {
						return err
					}
					unlocked, locked, err := newClient(cCtx).SearchItems(attributes)
					if err != nil {
						return err
					}
					return printJSON(map[string][]interfaces.ObjectPath{"unlocked": unlocked, "locked": locked})
				},
			},
			{
				Name:  "get",
				Usage: "get the secret of one item",
				Flags: []cli.Flag{flagItem, flagSession, flagKey},
				Action: func(cCtx *cli.Context) error {
					session, err := sessionFrom(cCtx)
					if err != nil {
						return err
					}
					item := interfaces.ObjectPath(cCtx.StringSlice(flagItem.Name)[0])

					secret, err := newClient(cCtx).GetSecret(item, session.Path)
					if err != nil {
						return err
					}
					decoded, err := decode(session, item, secret)
					if err != nil {
						return err
					}
					return printJSON(decoded)
				},
			},
			{
				Name:  "get-secrets",
				Usage: "get the secrets of several items, skipping locked and missing ones",
				Flags: []cli.Flag{flagItem, flagSession, flagKey},
				Action: func(cCtx *cli.Context) error {
					session, err := sessionFrom(cCtx)
					if err != nil {
						return err
					}

					var items []interfaces.ObjectPath
					for _, item := range cCtx.StringSlice(flagItem.Name) {
						items = append(items, interfaces.ObjectPath(item))
					}

					secrets, err := newClient(cCtx).GetSecrets(items, session.Path)
					if err != nil {
						return err
					}

					decoded := make([]decodedSecret, 0, len(secrets))
					for _, item := range items {
						secret, ok := secrets[item]
						if !ok {
							continue
						}
						d, err := decode(session, item, secret)
						if err != nil {
							return err
						}
						decoded = append(decoded, d)
					}
					return printJSON(decoded)
				},
			},
			{
				Name:  "delete",
				Usage: "delete an item, printing the prompt path if confirmation is needed",
				Flags: []cli.Flag{flagItem},
				Action: func(cCtx *cli.Context) error {
					prompt, err := newClient(cCtx).DeleteItem(interfaces.ObjectPath(cCtx.StringSlice(flagItem.Name)[0]))
					if err != nil {
						return err
					}
					return printJSON(map[string]interfaces.ObjectPath{"prompt": prompt})
				},
			},
			{
				Name:  "prompt",
				Usage: "drive a prompt",
				Flags: []cli.Flag{flagPath, flagWindow},
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).Prompt(interfaces.ObjectPath(cCtx.String(flagPath.Name)), cCtx.String(flagWindow.Name))
				},
			},
			{
				Name:  "dismiss",
				Usage: "dismiss a prompt",
				Flags: []cli.Flag{flagPath},
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).Dismiss(interfaces.ObjectPath(cCtx.String(flagPath.Name)))
				},
			},
			{
				Name:  "close",
				Usage: "close a session",
				Flags: []cli.Flag{flagSession},
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).CloseSession(interfaces.ObjectPath(cCtx.String(flagSession.Name)))
				},
			},
			{
				Name:  "signals",
				Usage: "print and clear the caller's pending Completed signals",
				Action: func(cCtx *cli.Context) error {
					signals, err := newClient(cCtx).Signals()
					if err != nil {
						return err
					}
					return printJSON(signals)
				},
			},
			{
				Name:  "disconnect",
				Usage: "close every session of the caller",
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).Disconnect()
				},
			},
			{
				Name:  "collections",
				Usage: "list collections and item metadata",
				Action: func(cCtx *cli.Context) error {
					collections, err := newClient(cCtx).Collections()
					if err != nil {
						return err
					}
					return printJSON(collections)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
