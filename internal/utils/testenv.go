package utils

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetUpLightingNetworkTestEnviroment spins up a regtest bitcoind, two LND
// nodes with a funded channel between them, and an LNbits instance backed
// by Alice's node, then exports the env vars the lightning backends read
// (LND_HOST/LND_TLS_CERT/LND_MACAROON, MINT_LNBITS_ENDPOINT/MINT_LNBITS_KEY).
// Returns alice, bob, the bitcoind node, and aliceLnbits, in that order.
func SetUpLightingNetworkTestEnviroment(ctx context.Context, names string) (testcontainers.Container, testcontainers.Container, testcontainers.Container, testcontainers.Container, error) {
	net, err := network.New(ctx,
		network.WithCheckDuplicate(),
		network.WithAttachable(),
		network.WithDriver("bridge"),
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("network.New: %w", err)
	}

	reqbtcd := testcontainers.ContainerRequest{
		Image:        "polarlightning/bitcoind:26.0",
		Name:         "bitcoindbackend" + names,
		WaitingFor:   wait.ForLog("Initialized HTTP server"),
		ExposedPorts: []string{"18443/tcp", "18444/tcp", "28334/tcp", "28335/tcp", "28336/tcp"},
		Networks:     []string{net.Name},
		Cmd:          []string{"bitcoind", "-server=1", "-regtest=1", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword", "-debug=1", "-zmqpubrawblock=tcp://0.0.0.0:28334", "-zmqpubrawtx=tcp://0.0.0.0:28335", "-zmqpubhashblock=tcp://0.0.0.0:28336", "-txindex=1", "-dnsseed=0", "-upnp=0", "-rpcbind=0.0.0.0", "-rpcallowip=0.0.0.0/0", "-rpcport=18443", "-rest", "-listen=1", "-listenonion=0", "-fallbackfee=0.0002", "-blockfilterindex=1", "-peerblockfilters=1"},
	}

	btcdC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: reqbtcd,
		Started:          true,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not setup bitcoind %w", err)
	}

	btcdIP, err := btcdC.ContainerIP(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get ContainerIP %w", err)
	}

	if _, _, err = btcdC.Exec(ctx, []string{"bitcoin-cli", "-regtest", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword", "createwallet", "wallet"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not create wallet %w", err)
	}
	if _, _, err = btcdC.Exec(ctx, []string{"bitcoin-cli", "-regtest", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword", "-generate", "101"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not create blocks %w", err)
	}

	reqlndAlice := testcontainers.ContainerRequest{
		Image:        "polarlightning/lnd:0.17.5-beta",
		WaitingFor:   wait.ForLog("Server listening on"),
		ExposedPorts: []string{"18445/tcp", "10009/tcp", "8080/tcp", "9735/tcp"},
		Name:         "lndAlice" + names,
		Networks:     []string{net.Name},
		Cmd:          []string{"lnd", "--noseedbackup", "--trickledelay=5000", "--alias=alice", "--tlsextradomain=alice", "--tlsextradomain=host.docker.bridge", "--tlsextradomain=host.docker.internal", "--listen=0.0.0.0:9735", "--rpclisten=0.0.0.0:10009", "--restlisten=0.0.0.0:8080", "--bitcoin.active", "--bitcoin.regtest", "--bitcoin.node=bitcoind", "--bitcoind.rpchost=" + btcdIP, "--bitcoind.rpcuser=rpcuser", "--bitcoind.rpcpass=rpcpassword", "--bitcoind.zmqpubrawblock=tcp://" + btcdIP + ":28334", "--bitcoind.zmqpubrawtx=tcp://" + btcdIP + ":28335"},
	}

	lndAliceC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: reqlndAlice,
		Started:          true,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not create Alice lnd container %w", err)
	}

	_, addressReader, err := lndAliceC.Exec(ctx, []string{"lncli", "--tlscertpath", "/home/lnd/.lnd/tls.cert", "--macaroonpath", "home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon", "newaddress", "p2tr"})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get Alice address %w", err)
	}

	type lndAddress struct {
		Address string
	}
	var address lndAddress
	drainJSON(addressReader, &address)

	if _, _, err = btcdC.Exec(ctx, []string{"bitcoin-cli", "-regtest", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword", "sendtoaddress", address.Address, "10"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not fund Alice's wallet %w", err)
	}
	if _, _, err = btcdC.Exec(ctx, []string{"bitcoin-cli", "-regtest", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword", "-generate", "10"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not create blocks %w", err)
	}
	if _, _, err = lndAliceC.Exec(ctx, []string{"lncli", "--tlscertpath", "/home/lnd/.lnd/tls.cert", "--macaroonpath", "home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon", "listunspent"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not check balance %w", err)
	}

	reqLndBob := testcontainers.ContainerRequest{
		Image:        "polarlightning/lnd:0.17.5-beta",
		WaitingFor:   wait.ForLog("Server listening on"),
		ExposedPorts: []string{"18446/tcp", "9736/tcp", "10009/tcp", "8081/tcp"},
		Name:         "lndBob" + names,
		Networks:     []string{net.Name},
		Cmd:          []string{"lnd", "--noseedbackup", "--trickledelay=5000", "--alias=bob", "--tlsextradomain=bob", "--tlsextradomain=host.docker.bridge", "--tlsextradomain=host.docker.internal", "--listen=0.0.0.0:9736", "--rpclisten=0.0.0.0:10009", "--restlisten=0.0.0.0:8081", "--bitcoin.active", "--bitcoin.regtest", "--bitcoin.node=bitcoind", "--bitcoind.rpchost=" + btcdIP, "--bitcoind.rpcuser=rpcuser", "--bitcoind.rpcpass=rpcpassword", "--bitcoind.zmqpubrawblock=tcp://" + btcdIP + ":28334", "--bitcoind.zmqpubrawtx=tcp://" + btcdIP + ":28335"},
	}

	lndBobC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: reqLndBob,
		Started:          true,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not create Bob lnd container %w", err)
	}

	lndBobIp, err := lndBobC.ContainerIP(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get lndBobC.ContainerIP %w", err)
	}

	type nodeInfo struct {
		IdentityPubkey      string `json:"identity_pubkey"`
		NumActiveChannels   int    `json:"num_active_channels"`
	}

	_, getInfoBobReader, err := lndBobC.Exec(ctx, []string{"lncli", "--tlscertpath", "/home/lnd/.lnd/tls.cert", "--macaroonpath", "home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon", "getinfo"})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get bob nodeInfo %w", err)
	}
	var bobInfo nodeInfo
	drainJSON(getInfoBobReader, &bobInfo)

	connectionStr := bobInfo.IdentityPubkey + "@" + lndBobIp + ":9736"
	if _, _, err = lndAliceC.Exec(ctx, []string{"lncli", "--tlscertpath", "/home/lnd/.lnd/tls.cert", "--macaroonpath", "home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon", "connect", connectionStr}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not connect Alice to Bob %w", err)
	}
	if _, _, err = lndAliceC.Exec(ctx, []string{"lncli", "--tlscertpath", "/home/lnd/.lnd/tls.cert", "--macaroonpath", "home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon", "openchannel", "--node_key", bobInfo.IdentityPubkey, "--fundmax", "--push_amt", "10000000"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not open channel %w", err)
	}
	if _, _, err = btcdC.Exec(ctx, []string{"bitcoin-cli", "-regtest", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword", "-generate", "50"}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not create blocks %w", err)
	}

	_, getInfoBobReaderTwo, err := lndBobC.Exec(ctx, []string{"lncli", "--tlscertpath", "/home/lnd/.lnd/tls.cert", "--macaroonpath", "home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon", "getinfo"})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get bob nodeInfo %w", err)
	}
	var bobInfoTwo nodeInfo
	drainJSON(getInfoBobReaderTwo, &bobInfoTwo)

	if bobInfoTwo.NumActiveChannels == 0 {
		return nil, nil, nil, nil, fmt.Errorf("could not open channel between Alice and Bob")
	}

	macaroon, err := ExtractInternalFile(ctx, lndAliceC, "/home/lnd/.lnd/data/chain/bitcoin/regtest/admin.macaroon")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not extract macaroon %w", err)
	}
	macaroonHex := hex.EncodeToString([]byte(macaroon))

	tlsCert, err := ExtractInternalFile(ctx, lndAliceC, "/home/lnd/.lnd/tls.cert")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not extract tls cert %w", err)
	}

	lndAliceIp, err := lndAliceC.ContainerIP(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get lndAliceC.ContainerIP %w", err)
	}
	alicePort := "10009"
	tlsCertPath := "/.lnd/tls.cert"

	if err := os.Setenv(LND_HOST, lndAliceIp+":"+alicePort); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not set %s: %w", LND_HOST, err)
	}
	if err := os.Setenv(LND_TLS_CERT, tlsCert); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not set %s: %w", LND_TLS_CERT, err)
	}
	if err := os.Setenv(LND_MACAROON, macaroonHex); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not set %s: %w", LND_MACAROON, err)
	}

	aliceLnbitsEnvVariables := map[string]string{
		"LNBITS_BACKEND_WALLET_CLASS": "LndWallet",
		"LND_GRPC_ENDPOINT":           lndAliceIp,
		"LND_GRPC_PORT":               alicePort,
		"LND_GRPC_CERT":               tlsCertPath,
		"LND_GRPC_MACAROON":          macaroonHex,
		"LNBITS_ADMIN_UI":            "true",
	}

	aliceLnbitsContainerReq := testcontainers.ContainerRequest{
		Image:      "lnbits/lnbits",
		WaitingFor: wait.ForLog("Application startup complete"),
		Files: []testcontainers.ContainerFile{
			{
				Reader:            strings.NewReader(tlsCert),
				ContainerFilePath: tlsCertPath,
				FileMode:          0o700,
			},
		},
		ExposedPorts: []string{"5000/tcp"},
		Name:         "aliceLNBITS" + names,
		Env:          aliceLnbitsEnvVariables,
		Networks:     []string{net.Name},
	}

	aliceLnbitsC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: aliceLnbitsContainerReq,
		Started:          true,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not start aliceLnbits %w", err)
	}
	if err := aliceLnbitsC.CopyToContainer(ctx, []byte(tlsCert), tlsCertPath, 0o700); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not copy tls cert into aliceLnbits %w", err)
	}

	aliceLnbitsIp, err := aliceLnbitsC.ContainerIP(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not get aliceLnbitsC.ContainerIP %w", err)
	}

	client := &http.Client{}

	firstInstallBody := struct {
		Username       string `json:"username"`
		Password       string `json:"password"`
		PasswordRepeat string `json:"password_repeat"`
	}{Username: "admin", Password: "password", PasswordRepeat: "password"}

	jsonBytes, err := json.Marshal(firstInstallBody)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut, "http://"+aliceLnbitsIp+":5000/api/v1/auth/first_install", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not build first_install request %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not call first_install %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	var installResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &installResp); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	walletsRequest, err := http.NewRequest(http.MethodGet, "http://"+aliceLnbitsIp+":5000/api/v1/wallets", nil)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not build wallets request %w", err)
	}
	walletsRequest.Header.Add("Authorization", "Bearer "+installResp.AccessToken)
	walletsRequest.Header.Add("cookie_access_token", installResp.AccessToken)

	respWallet, err := client.Do(walletsRequest)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not call wallets %w", err)
	}
	defer respWallet.Body.Close()

	walletBody, err := io.ReadAll(respWallet.Body)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	var wallets []struct {
		AdminKey string `json:"adminkey"`
	}
	if err := json.Unmarshal(walletBody, &wallets); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if len(wallets) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("no lnbits wallet found")
	}

	if err := os.Setenv(MINT_LNBITS_KEY, wallets[0].AdminKey); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not set %s: %w", MINT_LNBITS_KEY, err)
	}
	if err := os.Setenv(MINT_LNBITS_ENDPOINT, "http://"+aliceLnbitsIp+":5000"); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("could not set %s: %w", MINT_LNBITS_ENDPOINT, err)
	}

	return lndAliceC, lndBobC, btcdC, aliceLnbitsC, nil
}

// ExtractInternalFile reads a single file out of a running container.
func ExtractInternalFile(ctx context.Context, container testcontainers.Container, path string) (string, error) {
	catData, err := container.CopyFileFromContainer(ctx, path)
	if err != nil {
		return "", err
	}
	defer catData.Close()

	var data string
	buf := make([]byte, 1024)
	for {
		n, err := catData.Read(buf)
		if n > 0 {
			data = string(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return data, nil
}

func drainJSON(reader io.Reader, out any) {
	buf := make([]byte, 3024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if index := strings.Index(string(buf[:n]), "{"); index >= 0 {
				if jsonErr := json.Unmarshal(buf[index:n], out); jsonErr != nil {
					log.Printf("drainJSON: json.Unmarshal: %v", jsonErr)
				}
			}
		}
		if err != nil {
			break
		}
	}
}
