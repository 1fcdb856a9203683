package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"kartnet/internal/client"
	"kartnet/internal/view"
	"kartnet/pkg/core"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "服务器地址")
	proto := flag.String("proto", "udp", "传输协议: udp 或 kcp")
	predict := flag.Bool("predict", true, "开启客户端预测")
	control := flag.String("control", "wasd", "按键方案: wasd 或 arrow")
	flag.Parse()

	network := client.NewNetworkClient(*addr, *proto)
	if err := network.Connect(); err != nil {
		log.Fatalf("连接失败: %v", err)
	}
	defer network.Close()

	scheme := view.ParseControlScheme(*control)
	app := view.NewApp(network, *predict, scheme)

	// 设置窗口选项
	ebiten.SetWindowSize(view.ScreenWidth*3/4, view.ScreenHeight*3/4)
	ebiten.SetWindowTitle(fmt.Sprintf("Kart - 玩家 %d [%s]", network.PlayerID(), scheme))
	ebiten.SetTPS(core.ClientTPS)

	// 运行游戏
	if err := ebiten.RunGame(app); err != nil {
		log.Fatal(err)
	}
}
