package contract

// GovernanceABI covers the staking, voting and delegation surface of
// the governance contract plus the events the application watches.
// Reads and event queries are decoded against it; write calls are
// packed here and submitted through the wallet.
const GovernanceABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}],
		"name": "stake",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "amount", "type": "uint256"}],
		"name": "unstake",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "proposalId", "type": "uint256"},
			{"internalType": "bool", "name": "support", "type": "bool"}
		],
		"name": "vote",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "delegatee", "type": "address"}],
		"name": "delegate",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "string", "name": "description", "type": "string"}],
		"name": "propose",
		"outputs": [{"internalType": "uint256", "name": "proposalId", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalStaked",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "stakeOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "memberCount",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "getVotes",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "uint256", "name": "proposalId", "type": "uint256"},
			{"indexed": true, "internalType": "address", "name": "proposer", "type": "address"},
			{"indexed": false, "internalType": "string", "name": "description", "type": "string"}
		],
		"name": "ProposalCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "voter", "type": "address"},
			{"indexed": true, "internalType": "uint256", "name": "proposalId", "type": "uint256"},
			{"indexed": false, "internalType": "bool", "name": "support", "type": "bool"},
			{"indexed": false, "internalType": "uint256", "name": "weight", "type": "uint256"}
		],
		"name": "VoteCast",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "member", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "stake", "type": "uint256"}
		],
		"name": "MemberJoined",
		"type": "event"
	}
]`
